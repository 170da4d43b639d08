package domain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/crossbuild/internal/core/domain"
)

func resolve(t *testing.T, name string) domain.Architecture {
	t.Helper()
	arch, err := domain.DefaultCatalog().Resolve(name)
	require.NoError(t, err)
	return arch
}

func newCompile(t *testing.T, project, platform, arch string, opts domain.CompileOptions) *domain.CompileTask {
	t.Helper()
	task, err := domain.NewCompileTask(project, platform, resolve(t, arch), opts)
	require.NoError(t, err)
	return task
}

func TestCompileTask_Command(t *testing.T) {
	task := newCompile(t, "client", domain.PlatformLinux, "armhf", domain.CompileOptions{
		Root:     "/src",
		DistDir:  "dist",
		LDFlags:  "-w -s",
		Trimpath: true,
		Env:      map[string]string{"GOFLAGS": "-mod=readonly", "GOARM": "5"},
	})

	assert.Equal(t, "compile client-linux-arm32v7", task.Name())
	assert.Equal(t, domain.KindCompile, task.Kind())
	assert.Equal(t, []string{"/src/client"}, task.Dependencies())
	assert.Equal(t, []string{"/src/dist/client-linux-arm32v7"}, task.Outputs())

	cmd := task.Command()
	assert.Equal(t, "go", cmd.Path)
	assert.Equal(t, "/src", cmd.Dir)
	assert.Equal(t, []string{
		"build", "-trimpath", "-ldflags", "-w -s", "-o", "/src/dist/client-linux-arm32v7", "./client",
	}, cmd.Args)
	assert.Equal(t, map[string]string{
		"CGO_ENABLED": "0",
		"GOOS":        "linux",
		"GOARCH":      "arm",
		"GOARM":       "7",
		"GOFLAGS":     "-mod=readonly",
	}, cmd.Env)
}

func TestCompileTask_WindowsSuffix(t *testing.T) {
	task := newCompile(t, "server", domain.PlatformWindows, "x64", domain.CompileOptions{})

	assert.Equal(t, []string{filepath.Join("dist", "server-windows-amd64.exe")}, task.Outputs())
	assert.Equal(t, "amd64", task.Command().Env["GOARCH"])
	assert.Equal(t, "windows", task.Command().Env["GOOS"])
}

func TestCompileTask_UnsupportedPlatform(t *testing.T) {
	_, err := domain.NewCompileTask("client", domain.PlatformDarwin, resolve(t, "mips"), domain.CompileOptions{})
	require.ErrorIs(t, err, domain.ErrUnsupportedPlatform)
}

func TestCompileTask_CommandIsCopied(t *testing.T) {
	task := newCompile(t, "client", domain.PlatformLinux, "amd64", domain.CompileOptions{})

	cmd := task.Command()
	cmd.Args[0] = "run"
	cmd.Env["GOOS"] = "plan9"

	assert.Equal(t, "build", task.Command().Args[0])
	assert.Equal(t, "linux", task.Command().Env["GOOS"])
}

func TestTask_CanRun(t *testing.T) {
	root := t.TempDir()
	compile := newCompile(t, "client", domain.PlatformLinux, "amd64", domain.CompileOptions{Root: root})
	compress, err := domain.NewCompressTask(compile, domain.CompressOptions{})
	require.NoError(t, err)

	assert.False(t, compile.CanRun(), "project directory does not exist yet")
	assert.False(t, compress.CanRun())

	require.NoError(t, os.Mkdir(filepath.Join(root, "client"), domain.DirPerm))
	assert.True(t, compile.CanRun())

	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), domain.DirPerm))
	require.NoError(t, os.WriteFile(compile.Output(), []byte("bin"), domain.FilePerm))
	assert.True(t, compress.CanRun())

	require.NoError(t, os.Remove(compile.Output()))
	assert.False(t, compress.CanRun(), "CanRun must not cache earlier answers")
}

func TestCompressTask(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		arch     string
		opts     domain.CompressOptions
		wantOut  string
		wantArgs []string
	}{
		{
			name:     "Linux",
			platform: domain.PlatformLinux,
			arch:     "amd64",
			wantOut:  "dist/client-linux-amd64-compressed",
			wantArgs: []string{"-9", "-odist/client-linux-amd64-compressed", "dist/client-linux-amd64"},
		},
		{
			name:     "Windows keeps suffix last",
			platform: domain.PlatformWindows,
			arch:     "386",
			wantOut:  "dist/client-windows-386-compressed.exe",
			wantArgs: []string{"-9", "-odist/client-windows-386-compressed.exe", "dist/client-windows-386.exe"},
		},
		{
			name:     "Custom args",
			platform: domain.PlatformLinux,
			arch:     "arm64",
			opts:     domain.CompressOptions{Tool: "upx-ucl", Args: []string{"--best", "--lzma"}},
			wantOut:  "dist/client-linux-arm64-compressed",
			wantArgs: []string{"--best", "--lzma", "-odist/client-linux-arm64-compressed", "dist/client-linux-arm64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compile := newCompile(t, "client", tt.platform, tt.arch, domain.CompileOptions{})
			task, err := domain.NewCompressTask(compile, tt.opts)
			require.NoError(t, err)

			assert.Equal(t, domain.KindCompress, task.Kind())
			assert.Equal(t, compile.Outputs(), task.Dependencies())
			assert.Equal(t, []string{tt.wantOut}, task.Outputs())
			assert.Equal(t, tt.wantArgs, task.Command().Args)
			assert.Same(t, compile, task.Source())
		})
	}
}

func TestCompressTask_NotCompressible(t *testing.T) {
	compile := newCompile(t, "client", domain.PlatformLinux, "mips64le", domain.CompileOptions{})
	_, err := domain.NewCompressTask(compile, domain.CompressOptions{})
	require.ErrorIs(t, err, domain.ErrNotCompressible)
}

func TestUniversalBinaryTask(t *testing.T) {
	amd := newCompile(t, "dual", domain.PlatformDarwin, "amd64", domain.CompileOptions{})
	arm := newCompile(t, "dual", domain.PlatformDarwin, "arm64", domain.CompileOptions{})

	task, err := domain.NewUniversalBinaryTask([]*domain.CompileTask{amd, arm}, domain.MergeOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.KindUniversal, task.Kind())
	assert.Equal(t, "dual", task.Project())
	assert.Equal(t, []string{"dist/dual-darwin-amd64", "dist/dual-darwin-arm64"}, task.Dependencies())
	assert.Equal(t, []string{"dist/dual-darwin-universal"}, task.Outputs())
	assert.Equal(t, "lipo -create -output dist/dual-darwin-universal dist/dual-darwin-amd64 dist/dual-darwin-arm64",
		task.Command().String())
}

func TestUniversalBinaryTask_Errors(t *testing.T) {
	darwin := newCompile(t, "dual", domain.PlatformDarwin, "amd64", domain.CompileOptions{})
	otherProject := newCompile(t, "client", domain.PlatformDarwin, "arm64", domain.CompileOptions{})
	linux := newCompile(t, "dual", domain.PlatformLinux, "amd64", domain.CompileOptions{})
	linux386 := newCompile(t, "dual", domain.PlatformLinux, "386", domain.CompileOptions{})

	tests := []struct {
		name     string
		compiles []*domain.CompileTask
		want     error
	}{
		{"Empty", nil, domain.ErrEmptyMerge},
		{"Mixed projects", []*domain.CompileTask{darwin, otherProject}, domain.ErrMixedProjects},
		{"Mixed platforms", []*domain.CompileTask{darwin, linux}, domain.ErrMixedPlatforms},
		{"Unsupported platform", []*domain.CompileTask{linux}, domain.ErrUnsupportedPlatform},
		{"Linux only architecture", []*domain.CompileTask{linux386}, domain.ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewUniversalBinaryTask(tt.compiles, domain.MergeOptions{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUniversalBinaryTask_MissingMetadata(t *testing.T) {
	catalog := domain.NewCatalog()
	require.NoError(t, catalog.Register(domain.Architecture{
		Name: "ppc", GOARCH: "ppc64", Platforms: []string{domain.PlatformDarwin},
	}))
	arch, err := catalog.Resolve("ppc")
	require.NoError(t, err)
	compile, err := domain.NewCompileTask("dual", domain.PlatformDarwin, arch, domain.CompileOptions{})
	require.NoError(t, err)

	_, err = domain.NewUniversalBinaryTask([]*domain.CompileTask{compile}, domain.MergeOptions{})
	require.ErrorIs(t, err, domain.ErrMissingPlatformMetadata)
}

func TestImageBuildTask(t *testing.T) {
	amd := newCompile(t, "server", domain.PlatformLinux, "amd64", domain.CompileOptions{Root: "/src"})
	arm := newCompile(t, "server", domain.PlatformLinux, "armv7", domain.CompileOptions{Root: "/src"})

	tests := []struct {
		name     string
		opts     domain.ImageOptions
		wantArgs []string
	}{
		{
			name: "Version tag only",
			opts: domain.ImageOptions{Repository: "ghcr.io/acme/wsvpn", Version: "v1.2.3"},
			wantArgs: []string{
				"buildx", "build", "--build-arg", "SIDE=server", "--platform", "linux/amd64,linux/arm/v7",
				"-t", "ghcr.io/acme/wsvpn/server:v1.2.3", ".",
			},
		},
		{
			name: "Latest and push",
			opts: domain.ImageOptions{
				Repository: "ghcr.io/acme/wsvpn/", Version: "v1.2.3", TagLatest: true, Push: true,
				BuildArg: "PROJECT", Context: "docker",
			},
			wantArgs: []string{
				"buildx", "build", "--build-arg", "PROJECT=server", "--platform", "linux/amd64,linux/arm/v7",
				"-t", "ghcr.io/acme/wsvpn/server:v1.2.3", "-t", "ghcr.io/acme/wsvpn/server:latest", "--push", "docker",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := domain.NewImageBuildTask([]*domain.CompileTask{amd, arm}, tt.opts)
			require.NoError(t, err)

			assert.Equal(t, domain.KindImage, task.Kind())
			assert.Empty(t, task.Outputs())
			assert.Equal(t, []string{"/src/dist/server-linux-amd64", "/src/dist/server-linux-arm32v7"}, task.Dependencies())

			cmd := task.Command()
			assert.Equal(t, "docker", cmd.Path)
			assert.Equal(t, "/src", cmd.Dir)
			assert.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestImageBuildTask_Errors(t *testing.T) {
	mips := newCompile(t, "server", domain.PlatformLinux, "mips", domain.CompileOptions{})
	darwin := newCompile(t, "server", domain.PlatformDarwin, "amd64", domain.CompileOptions{})
	amd := newCompile(t, "server", domain.PlatformLinux, "amd64", domain.CompileOptions{})

	tests := []struct {
		name     string
		compiles []*domain.CompileTask
		opts     domain.ImageOptions
		want     error
	}{
		{"Empty", nil, domain.ImageOptions{Repository: "r"}, domain.ErrEmptyMerge},
		{"Not linux", []*domain.CompileTask{darwin}, domain.ImageOptions{Repository: "r"}, domain.ErrUnsupportedPlatform},
		{"No repository", []*domain.CompileTask{amd}, domain.ImageOptions{}, domain.ErrMissingRepository},
		{"No container platform", []*domain.CompileTask{amd, mips}, domain.ImageOptions{Repository: "r"}, domain.ErrMissingPlatformMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewImageBuildTask(tt.compiles, tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
