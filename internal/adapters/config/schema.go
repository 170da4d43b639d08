package config

// Buildfile represents the structure of the crossbuild.yaml configuration file.
type Buildfile struct {
	Version         string        `yaml:"version"`
	BuildVersion    string        `yaml:"buildVersion"`
	Dist            string        `yaml:"dist"`
	VersionVariable *string       `yaml:"versionVariable"`
	Projects        []string      `yaml:"projects"`
	Platforms       []string      `yaml:"platforms"`
	Architectures   []string      `yaml:"architectures"`
	Toolchain       *ToolchainDTO `yaml:"toolchain"`
	Prepare         [][]string    `yaml:"prepare"`
	Compress        *CompressDTO  `yaml:"compress"`
	Universal       *UniversalDTO `yaml:"universal"`
	Image           *ImageDTO     `yaml:"image"`
}

// ToolchainDTO configures the compiler invocation.
type ToolchainDTO struct {
	Go       string            `yaml:"go"`
	Trimpath bool              `yaml:"trimpath"`
	LDFlags  *string           `yaml:"ldflags"`
	Env      map[string]string `yaml:"env"`
}

// CompressDTO configures binary compression.
type CompressDTO struct {
	Tool string   `yaml:"tool"`
	Args []string `yaml:"args"`
}

// UniversalDTO configures universal binary merging.
type UniversalDTO struct {
	Tool string `yaml:"tool"`
}

// ImageDTO configures container image assembly.
type ImageDTO struct {
	Tool       string `yaml:"tool"`
	Repository string `yaml:"repository"`
	BuildArg   string `yaml:"buildArg"`
	Context    string `yaml:"context"`
	Builder    string `yaml:"builder"`
}
