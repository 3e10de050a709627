// Package noop is the smallest codegen module: it registers no targets.
// It exists to exercise codegens that contribute nothing to the registry.
package noop

import "github.com/roach88/bir/internal/target"

// Name is the codegen module name.
const Name = "noop"

// APIs exports no capability records.
func APIs() []target.API { return nil }

// Codegen returns the module entry.
func Codegen() target.Codegen {
	return target.Codegen{Name: Name, APIs: APIs}
}
