// Package planner expands a build matrix into a task graph.
package planner

import (
	"slices"

	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

// defaultVersion is stamped when neither the configuration nor source control provide one.
const defaultVersion = "dev"

// Skip records a requested architecture that cannot be built for a platform.
type Skip struct {
	Project      string
	Platform     string
	Architecture string
}

func (s Skip) String() string {
	return s.Project + "-" + s.Platform + "-" + s.Architecture
}

// Plan is the outcome of planning a build.
type Plan struct {
	Graph   *domain.Graph
	Skipped []Skip
}

// Planner enumerates project, platform and architecture combinations into tasks.
type Planner struct {
	catalog *domain.Catalog
}

// New creates a Planner resolving architectures through catalog.
func New(catalog *domain.Catalog) *Planner {
	return &Planner{catalog: catalog}
}

// Catalog returns the architecture catalog used for planning.
func (p *Planner) Catalog() *domain.Catalog {
	return p.catalog
}

// Plan builds the task graph for m.
//
// Tasks are enumerated project first, then platform, then architecture. Each compile is
// followed by its compress task. The universal binary and image tasks of a platform come
// after all of its compiles. Name resolution errors are returned before any task is created.
func (p *Planner) Plan(cfg domain.BuildConfig, m domain.Matrix) (*Plan, error) {
	projects, err := p.projects(cfg, m)
	if err != nil {
		return nil, err
	}
	platforms, err := p.platforms(cfg, m)
	if err != nil {
		return nil, err
	}
	arches, err := p.architectures(cfg, m)
	if err != nil {
		return nil, err
	}

	version := cfg.Version
	if version == "" {
		version = defaultVersion
	}
	compileOpts := domain.CompileOptions{
		Toolchain: cfg.Toolchain.Go,
		Root:      cfg.Root,
		DistDir:   cfg.DistDir,
		LDFlags:   cfg.LDFlags(version),
		Trimpath:  cfg.Toolchain.Trimpath,
		Env:       cfg.Toolchain.Env,
	}

	plan := &Plan{Graph: domain.NewGraph()}
	for _, project := range projects {
		for _, platform := range platforms {
			targets := arches
			if targets == nil {
				targets = p.catalog.ListForPlatform(platform)
			}

			compiles := make([]*domain.CompileTask, 0, len(targets))
			for _, arch := range targets {
				if !arch.Supports(platform) {
					plan.Skipped = append(plan.Skipped, Skip{Project: project, Platform: platform, Architecture: arch.Name})
					continue
				}
				compile, err := p.addCompile(plan.Graph, project, platform, arch, compileOpts, cfg, m)
				if err != nil {
					return nil, err
				}
				compiles = append(compiles, compile)
			}

			if err := p.addCombined(plan.Graph, platform, compiles, cfg, m, version); err != nil {
				return nil, err
			}
		}
	}

	if plan.Graph.Len() == 0 {
		return nil, zerr.Wrap(domain.ErrNothingToBuild, "failed to plan build")
	}
	if err := plan.Graph.Validate(); err != nil {
		return nil, zerr.Wrap(err, "failed to plan build")
	}
	return plan, nil
}

func (p *Planner) addCompile(
	g *domain.Graph,
	project, platform string,
	arch domain.Architecture,
	opts domain.CompileOptions,
	cfg domain.BuildConfig,
	m domain.Matrix,
) (*domain.CompileTask, error) {
	compile, err := domain.NewCompileTask(project, platform, arch, opts)
	if err != nil {
		return nil, err
	}
	if err := g.AddTask(compile); err != nil {
		return nil, err
	}

	if m.Compress && arch.Compressible {
		compress, err := domain.NewCompressTask(compile, domain.CompressOptions{
			Tool: cfg.Compress.Tool,
			Args: cfg.Compress.Args,
		})
		if err != nil {
			return nil, err
		}
		if err := g.AddTask(compress); err != nil {
			return nil, err
		}
	}
	return compile, nil
}

// addCombined appends the tasks that merge every compile of one project and platform.
// Architectures without the required metadata are left out; no task is added when none remain.
func (p *Planner) addCombined(
	g *domain.Graph,
	platform string,
	compiles []*domain.CompileTask,
	cfg domain.BuildConfig,
	m domain.Matrix,
	version string,
) error {
	if m.Universal && domain.SupportsUniversalBinary(platform) {
		mergeable := slices.DeleteFunc(slices.Clone(compiles), func(c *domain.CompileTask) bool {
			return c.Architecture().DarwinName == ""
		})
		if len(mergeable) > 0 {
			task, err := domain.NewUniversalBinaryTask(mergeable, domain.MergeOptions{Tool: cfg.Universal.Tool})
			if err != nil {
				return err
			}
			if err := g.AddTask(task); err != nil {
				return err
			}
		}
	}

	if m.Image.Enabled && domain.SupportsContainerImage(platform) {
		imageable := slices.DeleteFunc(slices.Clone(compiles), func(c *domain.CompileTask) bool {
			return c.Architecture().ContainerPlatform == ""
		})
		if len(imageable) > 0 {
			opts := m.Image
			opts.Version = version
			opts.Tool = cfg.Image.Tool
			opts.BuildArg = cfg.Image.BuildArg
			opts.Context = cfg.Image.Context
			if opts.Repository == "" {
				opts.Repository = cfg.Image.Repository
			}
			task, err := domain.NewImageBuildTask(imageable, opts)
			if err != nil {
				return err
			}
			if err := g.AddTask(task); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Planner) projects(cfg domain.BuildConfig, m domain.Matrix) ([]string, error) {
	if isWildcard(m.Projects) {
		if len(cfg.Projects) == 0 {
			return nil, zerr.Wrap(domain.ErrNothingToBuild, "no projects configured")
		}
		return cfg.Projects, nil
	}

	out := make([]string, 0, len(m.Projects))
	for _, project := range m.Projects {
		if len(cfg.Projects) > 0 && !slices.Contains(cfg.Projects, project) {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownProject, "failed to plan build"), "project", project)
		}
		if project == "" || project == "." || project == ".." {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownProject, "failed to plan build"), "project", project)
		}
		out = appendUnique(out, project)
	}
	return out, nil
}

func (p *Planner) platforms(cfg domain.BuildConfig, m domain.Matrix) ([]string, error) {
	requested := m.Platforms
	if isWildcard(requested) {
		requested = cfg.Platforms
	}
	if isWildcard(requested) {
		return domain.KnownPlatforms(), nil
	}

	out := make([]string, 0, len(requested))
	for _, platform := range requested {
		if !domain.IsKnownPlatform(platform) {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPlatform, "failed to plan build"), "platform", platform)
		}
		out = appendUnique(out, platform)
	}
	return out, nil
}

// architectures resolves explicitly requested architectures. It returns nil when every
// architecture supported by each platform is requested.
func (p *Planner) architectures(cfg domain.BuildConfig, m domain.Matrix) ([]domain.Architecture, error) {
	requested := m.Architectures
	if isWildcard(requested) {
		requested = cfg.Architectures
	}
	if isWildcard(requested) {
		return nil, nil
	}

	out := make([]domain.Architecture, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		arch, err := p.catalog.Resolve(name)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to plan build")
		}
		if seen[arch.Name] {
			continue
		}
		seen[arch.Name] = true
		out = append(out, arch)
	}
	return out, nil
}

func isWildcard(values []string) bool {
	return len(values) == 0 || slices.Contains(values, domain.Wildcard)
}

func appendUnique(values []string, v string) []string {
	if slices.Contains(values, v) {
		return values
	}
	return append(values, v)
}
