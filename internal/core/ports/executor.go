// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/crossbuild/internal/core/domain"
)

// Executor defines the interface for running external commands.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs cmd to completion, streaming its output to stdout and stderr.
	//
	// The command inherits the process environment with cmd.Env merged on top; overrides win.
	// A non-zero exit is reported as an error wrapping *domain.CommandError. Any other error
	// means the command could not be launched.
	Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
