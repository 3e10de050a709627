package target

import (
	"context"

	"github.com/roach88/bir/internal/ir"
)

// Version identifies the shape of a capability record.
type Version int

const (
	// V1 records carry New, Build and Run.
	V1 Version = 1
)

func (v Version) String() string {
	switch v {
	case V1:
		return "V1"
	}
	return "V?"
}

// API is a versioned capability record. The unexported method closes
// the set of implementations to this package.
type API interface {
	Version() Version
	TargetName() string
	isAPI()
}

// BuildOptions are the flags every backend's Build accepts.
type BuildOptions struct {
	// NoStdlib skips linking the target's support library.
	NoStdlib bool

	// Debug asks for debug information in the output.
	Debug bool
}

// Backend is the state New returns for one target invocation. Build and
// Run are not assumed to be reentrant.
type Backend interface {
	// Build writes the program to outputPath. Intermediate files go in
	// scratchDir.
	Build(ctx context.Context, p *ir.Program, outputPath, scratchDir string, opts BuildOptions) error

	// Run executes a previously built output.
	Run(ctx context.Context, outputPath string, runArgs []string) error
}

// APIV1 is the V1 capability record.
type APIV1 struct {
	// Name is the public target name used for lookup.
	Name string

	// FileExt is the default output file extension, including the dot.
	FileExt string

	// New creates backend state owned by scope from raw target arguments.
	New func(scope *Scope, args []string) (Backend, error)
}

func (APIV1) Version() Version { return V1 }

func (a APIV1) TargetName() string { return a.Name }

func (APIV1) isAPI() {}
