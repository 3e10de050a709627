package target

import (
	"errors"
	"fmt"
)

// RegistrationConflictError reports two records with the same target name.
type RegistrationConflictError struct {
	// Target is the contested name.
	Target string

	// Codegen is the module whose registration failed.
	Codegen string

	// Existing is the module that registered Target first. It equals
	// Codegen for an intra-module conflict.
	Existing string
}

// IntraModule reports whether one codegen declared the name twice.
func (e *RegistrationConflictError) IntraModule() bool {
	return e.Codegen == e.Existing
}

func (e *RegistrationConflictError) Error() string {
	if e.IntraModule() {
		return fmt.Sprintf("codegen %s defines target %s more than once", e.Codegen, e.Target)
	}
	return fmt.Sprintf("codegens %s and %s define the same target %s", e.Existing, e.Codegen, e.Target)
}

// UnsupportedVersionError reports a capability record this host cannot
// dispatch.
type UnsupportedVersionError struct {
	Target  string
	Version Version
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("target %s: unsupported capability version %d", e.Target, int(e.Version))
}

// UnknownTargetError is returned by Resolve when no target has the
// requested name.
type UnknownTargetError struct {
	Name      string
	Available []string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown target %q (available: %v)", e.Name, e.Available)
}

// IsRegistrationConflict returns true if err is a RegistrationConflictError.
func IsRegistrationConflict(err error) bool {
	var ce *RegistrationConflictError
	return errors.As(err, &ce)
}
