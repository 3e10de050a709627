// Package codegen lists the code generation modules compiled into bir.
package codegen

import (
	"io"
	"log/slog"
	"os"

	"github.com/roach88/bir/internal/codegen/bytecode"
	"github.com/roach88/bir/internal/codegen/noop"
	"github.com/roach88/bir/internal/target"
)

// Env is the host environment handed to codegen modules that perform I/O.
type Env struct {
	Stdout io.Writer
	Logger *slog.Logger
}

// DefaultEnv writes program output to os.Stdout and discards logs.
func DefaultEnv() Env {
	return Env{
		Stdout: os.Stdout,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Codegens returns every compiled-in module in registration order.
func Codegens(env Env) []target.Codegen {
	return []target.Codegen{
		bytecode.Codegen(bytecode.WithStdout(env.Stdout), bytecode.WithLogger(env.Logger)),
		noop.Codegen(),
	}
}

// Registry loads every compiled-in module.
func Registry(env Env) (*target.Registry, error) {
	return target.Load(Codegens(env)...)
}
