package target

import (
	"fmt"
)

// Target is one registry entry: a capability record and the codegen
// module that provided it.
type Target struct {
	API     API
	Codegen string
}

// Name is the public target name.
func (t Target) Name() string { return t.API.TargetName() }

// Registry maps target names to capability records. It is written during
// start-up and read-only afterwards; concurrent lookups are safe once
// registration is finished.
type Registry struct {
	targets []Target
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends apis on behalf of codegen. It fails without changing
// the registry if any name collides with an existing entry or with
// another record in apis.
func (r *Registry) Register(apis []API, codegen string) error {
	pending := make([]Target, 0, len(apis))
	for _, api := range apis {
		name := api.TargetName()
		for _, existing := range r.targets {
			if existing.Name() == name {
				return &RegistrationConflictError{Target: name, Codegen: codegen, Existing: existing.Codegen}
			}
		}
		for _, p := range pending {
			if p.Name() == name {
				return &RegistrationConflictError{Target: name, Codegen: codegen, Existing: codegen}
			}
		}
		pending = append(pending, Target{API: api, Codegen: codegen})
	}
	r.targets = append(r.targets, pending...)
	return nil
}

// Lookup returns the target with the given name.
func (r *Registry) Lookup(name string) (Target, bool) {
	for _, t := range r.targets {
		if t.Name() == name {
			return t, true
		}
	}
	return Target{}, false
}

// Resolve is Lookup returning an *UnknownTargetError when name is absent.
func (r *Registry) Resolve(name string) (Target, error) {
	if t, ok := r.Lookup(name); ok {
		return t, nil
	}
	return Target{}, &UnknownTargetError{Name: name, Available: r.Names()}
}

// Targets returns every entry in registration order.
func (r *Registry) Targets() []Target {
	return append([]Target(nil), r.targets...)
}

// Names returns every target name in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.targets))
	for i, t := range r.targets {
		names[i] = t.Name()
	}
	return names
}

// Open creates backend state for t. Every known version is handled
// explicitly; an unknown version fails.
func Open(t Target, scope *Scope, args []string) (Backend, error) {
	switch api := t.API.(type) {
	case APIV1:
		if api.New == nil {
			return nil, fmt.Errorf("target %s: V1 record has no constructor", api.Name)
		}
		b, err := api.New(scope, args)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", api.Name, err)
		}
		return b, nil
	}
	return nil, &UnsupportedVersionError{Target: t.Name(), Version: t.API.Version()}
}

// FileExt returns the default output extension of t, or "" for versions
// without one.
func FileExt(t Target) string {
	switch api := t.API.(type) {
	case APIV1:
		return api.FileExt
	}
	return ""
}

// Codegen is a compiled-in code generation module. APIs is its single
// entry point.
type Codegen struct {
	Name string
	APIs func() []API
}

// Load registers every codegen in order into a new registry.
func Load(codegens ...Codegen) (*Registry, error) {
	r := NewRegistry()
	for _, cg := range codegens {
		if cg.APIs == nil {
			continue
		}
		if err := r.Register(cg.APIs(), cg.Name); err != nil {
			return nil, err
		}
	}
	return r, nil
}
