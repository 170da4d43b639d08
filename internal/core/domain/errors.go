package domain

import "go.trai.ch/zerr"

var (
	// ErrUnknownArchitecture is returned when an architecture name or alias is not in the catalog.
	ErrUnknownArchitecture = zerr.New("unknown architecture")

	// ErrDuplicateArchitecture is returned when registering an architecture whose name or alias is taken.
	ErrDuplicateArchitecture = zerr.New("architecture already registered")

	// ErrUnknownPlatform is returned when a platform name is not recognized.
	ErrUnknownPlatform = zerr.New("unknown platform")

	// ErrUnknownProject is returned when a requested project is not declared in the configuration.
	ErrUnknownProject = zerr.New("unknown project")

	// ErrUnsupportedPlatform is returned when an architecture or task kind cannot target a platform.
	ErrUnsupportedPlatform = zerr.New("platform not supported")

	// ErrNotCompressible is returned when a compress task is requested for an architecture that does not support it.
	ErrNotCompressible = zerr.New("architecture does not support compression")

	// ErrEmptyMerge is returned when a multi-architecture task is built without inputs.
	ErrEmptyMerge = zerr.New("no compile outputs to combine")

	// ErrMixedProjects is returned when a multi-architecture task receives outputs from more than one project.
	ErrMixedProjects = zerr.New("outputs belong to more than one project")

	// ErrMixedPlatforms is returned when a multi-architecture task receives outputs from more than one platform.
	ErrMixedPlatforms = zerr.New("outputs belong to more than one platform")

	// ErrMissingPlatformMetadata is returned when an architecture lacks the metadata a task kind requires.
	ErrMissingPlatformMetadata = zerr.New("architecture is missing platform metadata")

	// ErrMissingRepository is returned when images are requested without an image repository.
	ErrMissingRepository = zerr.New("image repository is not configured")

	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrDuplicateOutput is returned when two tasks declare the same output path.
	ErrDuplicateOutput = zerr.New("output produced by more than one task")

	// ErrUnschedulableDependency is returned when a dependency is neither produced by a task nor present on disk.
	ErrUnschedulableDependency = zerr.New("dependency can never be satisfied")

	// ErrDeadlock is returned when pending tasks remain but none can run and none are running.
	ErrDeadlock = zerr.New("scheduler deadlock: pending tasks can never become runnable")

	// ErrInvalidParallelism is returned when the job count is lower than one.
	ErrInvalidParallelism = zerr.New("parallelism must be at least 1")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrDependencyFailed is returned for a task that cannot run because a task producing one of
	// its dependencies failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrBuildFailed is returned when one or more tasks of a build failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrCommandFailed is returned when an external command exits with a non-zero status.
	ErrCommandFailed = zerr.New("command failed")

	// ErrCommandStartFailed is returned when an external command cannot be launched.
	ErrCommandStartFailed = zerr.New("failed to start command")

	// ErrNothingToBuild is returned when the matrix expands to zero tasks.
	ErrNothingToBuild = zerr.New("matrix expands to no tasks")

	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrWorkspacePrepareFailed is returned when the dist directory or preparation commands fail.
	ErrWorkspacePrepareFailed = zerr.New("failed to prepare workspace")

	// ErrStoreCreateFailed is returned when the build info store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create build info store directory")

	// ErrStoreReadFailed is returned when the build info cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info")

	// ErrStoreUnmarshalFailed is returned when the build info cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal build info")

	// ErrStoreMarshalFailed is returned when the build info cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal build info")

	// ErrStoreWriteFailed is returned when the build info cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")
)
