package tui

import (
	"bytes"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/vito/midterm"
)

// Vterm is the virtual terminal behind one task's log pane.
// Tools such as docker buildx and upx redraw progress with cursor movement, so their
// output is replayed through a terminal emulator instead of being split into lines.
type Vterm struct {
	mu     sync.Mutex
	vt     *midterm.Terminal
	width  int
	height int
	offset int
	buf    bytes.Buffer
}

// NewVterm creates an empty terminal one row high.
func NewVterm() *Vterm {
	return &Vterm{
		vt:     midterm.NewAutoResizingTerminal(),
		height: 1,
	}
}

// Write feeds task output to the terminal.
// Bare line feeds from the pipe executor are translated the way a tty would.
func (v *Vterm) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	following := v.offset >= v.maxOffset()

	data := bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
	if _, err := v.vt.Write(data); err != nil {
		return 0, err
	}

	if following {
		v.offset = v.maxOffset()
	}
	return len(p), nil
}

// Resize sets the visible log area. Columns wider than the pane wrap inside the terminal.
func (v *Vterm) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	following := v.offset >= v.maxOffset()

	v.height = max(height, 1)
	if width = max(width, 1); width != v.width {
		v.width = width
		v.vt.ResizeX(width)
	}

	if following {
		v.offset = v.maxOffset()
	}
	v.offset = min(v.offset, v.maxOffset())
}

// Scroll moves the view by delta rows. Scrolling back to the bottom resumes following.
func (v *Vterm) Scroll(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = min(max(v.offset+delta, 0), v.maxOffset())
}

// ScrollToEnd jumps to the newest output.
func (v *Vterm) ScrollToEnd() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.maxOffset()
}

// Offset returns the first visible row.
func (v *Vterm) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// Lines returns the screen content as plain text, without trailing blank rows.
func (v *Vterm) Lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := v.usedRows()
	lines := make([]string, 0, rows)
	for row := range rows {
		lines = append(lines, v.plainLine(row))
	}
	return lines
}

// View renders the visible rows with the formatting the task emitted.
func (v *Vterm) View() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	end := min(v.offset+v.height, v.usedRows())
	v.buf.Reset()
	for row := v.offset; row < end; row++ {
		if row > v.offset {
			_ = v.buf.WriteByte('\n')
		}
		_ = v.vt.RenderLine(&v.buf, row)
	}
	return v.buf.String()
}

func (v *Vterm) plainLine(row int) string {
	v.buf.Reset()
	_ = v.vt.RenderLine(&v.buf, row)
	return strings.TrimRight(ansi.Strip(v.buf.String()), " ")
}

// usedRows is the terminal height minus trailing blank rows, such as the row the cursor
// rests on after a final newline.
func (v *Vterm) usedRows() int {
	rows := v.vt.UsedHeight()
	for rows > 0 && v.plainLine(rows-1) == "" {
		rows--
	}
	return rows
}

func (v *Vterm) maxOffset() int {
	return max(v.usedRows()-v.height, 0)
}
