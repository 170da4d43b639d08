package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/ui/output"
	"go.trai.ch/crossbuild/internal/ui/style"
	"go.trai.ch/zerr"
)

// Architectures prints the architecture catalog, restricted to platform when it is not empty.
func (a *App) Architectures(_ context.Context, platform string) error {
	catalog := a.planner.Catalog()

	arches := catalog.All()
	if platform != "" {
		if !domain.IsKnownPlatform(platform) {
			return zerr.With(zerr.Wrap(domain.ErrUnknownPlatform, "failed to list architectures"), "platform", platform)
		}
		arches = catalog.ListForPlatform(platform)
	}

	rows := make([][]string, 0, len(arches))
	for _, arch := range arches {
		rows = append(rows, []string{
			arch.Name,
			strings.Join(arch.Aliases, ", "),
			strings.Join(arch.Platforms, ", "),
			yesNo(arch.Compressible),
			orDash(arch.ContainerPlatform),
			orDash(arch.DarwinName),
		})
	}

	a.printTable([]string{"NAME", "ALIASES", "PLATFORMS", "COMPRESS", "IMAGE", "UNIVERSAL"}, rows, nil)
	return nil
}

// Report prints the build info recorded by the last builds.
func (a *App) Report(_ context.Context) error {
	if _, err := a.loadConfig(); err != nil {
		return err
	}

	infos, err := a.store.List()
	if err != nil {
		return zerr.Wrap(err, "failed to list build info")
	}
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No builds recorded.")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	statuses := make([]domain.TaskStatus, 0, len(infos))
	for _, info := range infos {
		duration := "-"
		if !info.StartedAt.IsZero() && !info.Timestamp.IsZero() {
			duration = info.Timestamp.Sub(info.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			info.TaskName,
			style.StatusIcon(info.TaskStatus()) + " " + info.Status,
			strconv.Itoa(info.ExitCode),
			duration,
			orDash(info.Version),
			orDash(shortDigest(info.OutputHash)),
			info.Timestamp.Local().Format(time.DateTime),
		})
		statuses = append(statuses, info.TaskStatus())
	}

	a.printTable([]string{"TASK", "STATUS", "EXIT", "DURATION", "VERSION", "DIGEST", "FINISHED"}, rows, statuses)
	return nil
}

// printReport prints the outcome of a build run.
func (a *App) printReport(report *domain.Report, version string) {
	if len(report.Results) == 0 {
		return
	}

	rows := make([][]string, 0, len(report.Results))
	statuses := make([]domain.TaskStatus, 0, len(report.Results))
	for _, res := range report.Results {
		detail := strings.Join(baseNames(res.Outputs), ", ")
		switch {
		case res.Status == domain.StatusFailed && res.ExitCode > 0:
			detail = "exit status " + strconv.Itoa(res.ExitCode)
		case res.Status == domain.StatusFailed && res.Err != nil:
			detail = res.Err.Error()
		case res.Status == domain.StatusPending:
			detail = "not run"
		}

		duration := "-"
		if d := res.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			style.StatusIcon(res.Status) + " " + res.Task,
			duration,
			detail,
		})
		statuses = append(statuses, res.Status)
	}

	_, _ = fmt.Fprintln(a.stdout)
	a.printTable([]string{"TASK", "DURATION", "RESULT"}, rows, statuses)

	c := report.Counts()
	summary := fmt.Sprintf("%d done, %d failed, %d not run (version %s)", c.Done, c.Failed, c.Pending, version)
	out := output.New(a.stdout)
	color := style.Green
	if !report.OK() {
		color = style.Red
	}
	_, _ = fmt.Fprintln(a.stdout, out.String(summary).Foreground(termenv.RGBColor(string(color))).Bold())
}

// printTable renders rows below headers. statuses, when set, colors each row's first cell.
func (a *App) printTable(headers []string, rows [][]string, statuses []domain.TaskStatus) {
	renderer := lipgloss.NewRenderer(a.stdout)
	renderer.SetColorProfile(output.New(a.stdout).Profile)

	headerStyle := renderer.NewStyle().Bold(true).Foreground(style.Iris).Padding(0, 1)
	cellStyle := renderer.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(renderer.NewStyle().Foreground(style.Slate)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(statuses) {
				return cellStyle.Foreground(style.StatusColor(statuses[row]))
			}
			return cellStyle
		})

	_, _ = fmt.Fprintln(a.stdout, t.String())
}

func baseNames(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
