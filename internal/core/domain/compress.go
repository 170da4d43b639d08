package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// CompressOptions configures the binary compressor.
type CompressOptions struct {
	// Tool is the compressor executable. Defaults to "upx".
	Tool string
	// Args are passed before the output flag. Defaults to ["-9"].
	Args []string
}

// CompressTask post-compresses the binary produced by one CompileTask.
type CompressTask struct {
	artifacts

	source *CompileTask
}

// NewCompressTask creates a CompressTask for the output of compile.
// It fails with ErrNotCompressible for architectures the compressor cannot handle.
func NewCompressTask(compile *CompileTask, opts CompressOptions) (*CompressTask, error) {
	if !compile.arch.Compressible {
		err := zerr.Wrap(ErrNotCompressible, "cannot compress binary")
		return nil, zerr.With(err, "architecture", compile.arch.Name)
	}

	tool := opts.Tool
	if tool == "" {
		tool = "upx"
	}
	args := opts.Args
	if args == nil {
		args = []string{"-9"}
	}

	input := compile.Output()
	output := CompressedName(input)

	cmdArgs := slices.Concat(args, []string{"-o" + output, input})

	return &CompressTask{
		artifacts: artifacts{
			name:    "compress " + ArtifactName(compile.project, compile.platform, compile.arch.Name),
			kind:    KindCompress,
			deps:    []string{input},
			outputs: []string{output},
			command: Command{
				Path: tool,
				Args: cmdArgs,
				Dir:  compile.command.Dir,
			},
		},
		source: compile,
	}, nil
}

// Source returns the CompileTask whose output is compressed.
func (t *CompressTask) Source() *CompileTask { return t.source }
