package target

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/ir"
)

type stubBackend struct {
	args []string
}

func (b *stubBackend) Build(context.Context, *ir.Program, string, string, BuildOptions) error {
	return nil
}

func (b *stubBackend) Run(context.Context, string, []string) error { return nil }

func stubAPI(name string) API {
	return APIV1{
		Name:    name,
		FileExt: ".s",
		New: func(_ *Scope, args []string) (Backend, error) {
			return &stubBackend{args: args}, nil
		},
	}
}

// apiV2 stands in for a record shape this host does not know.
type apiV2 struct{ name string }

func (apiV2) Version() Version { return Version(2) }
func (a apiV2) TargetName() string { return a.name }
func (apiV2) isAPI() {}

func TestRegisterIntraModuleConflict(t *testing.T) {
	r := NewRegistry()
	err := r.Register([]API{stubAPI("x86_64"), stubAPI("x86_64")}, "gas")
	require.Error(t, err)

	var ce *RegistrationConflictError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.IntraModule())
	assert.Equal(t, "x86_64", ce.Target)
	assert.Equal(t, "gas", ce.Codegen)
	assert.Equal(t, "codegen gas defines target x86_64 more than once", ce.Error())

	// A failed registration leaves the registry untouched.
	assert.Empty(t, r.Targets())
}

func TestRegisterInterModuleConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register([]API{stubAPI("x86_64"), stubAPI("aarch64")}, "gas"))

	err := r.Register([]API{stubAPI("6502"), stubAPI("x86_64")}, "fasm")
	require.Error(t, err)
	assert.True(t, IsRegistrationConflict(err))

	var ce *RegistrationConflictError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.IntraModule())
	assert.Equal(t, "gas", ce.Existing)
	assert.Equal(t, "fasm", ce.Codegen)
	assert.Equal(t, "codegens gas and fasm define the same target x86_64", ce.Error())

	assert.Equal(t, []string{"x86_64", "aarch64"}, r.Names())
	_, ok := r.Lookup("6502")
	assert.False(t, ok)
}

func TestLookupAndOpen(t *testing.T) {
	r, err := Load(
		Codegen{Name: "gas", APIs: func() []API { return []API{stubAPI("x86_64")} }},
		Codegen{Name: "empty"},
		Codegen{Name: "uxn", APIs: func() []API { return []API{stubAPI("uxn")} }},
	)
	require.NoError(t, err)

	tgt, ok := r.Lookup("uxn")
	require.True(t, ok)
	assert.Equal(t, "uxn", tgt.Codegen)
	assert.Equal(t, ".s", FileExt(tgt))
	assert.Equal(t, V1, tgt.API.Version())

	scope := NewScope()
	defer scope.Close()
	b, err := Open(tgt, scope, []string{"-O2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-O2"}, b.(*stubBackend).args)

	_, ok = r.Lookup("z80")
	assert.False(t, ok)

	_, err = r.Resolve("z80")
	var ue *UnknownTargetError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"x86_64", "uxn"}, ue.Available)
}

func TestLoadPropagatesConflict(t *testing.T) {
	cg := Codegen{Name: "gas", APIs: func() []API { return []API{stubAPI("x86_64")} }}
	_, err := Load(cg, Codegen{Name: "fasm", APIs: cg.APIs})
	assert.True(t, IsRegistrationConflict(err))
}

func TestOpenFailsClosedOnUnknownVersion(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register([]API{apiV2{name: "future"}}, "next"))

	tgt, ok := r.Lookup("future")
	require.True(t, ok)

	b, err := Open(tgt, NewScope(), nil)
	assert.Nil(t, b)
	var ve *UnsupportedVersionError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, Version(2), ve.Version)
	assert.Equal(t, "", FileExt(tgt))
}

func TestOpenWrapsConstructorError(t *testing.T) {
	api := APIV1{Name: "bad", New: func(*Scope, []string) (Backend, error) {
		return nil, errors.New("unknown flag -Z")
	}}
	_, err := Open(Target{API: api, Codegen: "x"}, NewScope(), []string{"-Z"})
	require.Error(t, err)
	assert.Equal(t, "target bad: unknown flag -Z", err.Error())

	_, err = Open(Target{API: APIV1{Name: "nil"}}, NewScope(), nil)
	assert.Error(t, err)
}

func TestScopeReleasesInReverse(t *testing.T) {
	s := NewScope()
	var order []int
	for i := range 3 {
		require.NoError(t, s.Defer(func() error {
			order = append(order, i)
			return nil
		}))
	}
	require.NoError(t, s.Close())
	assert.Equal(t, []int{2, 1, 0}, order)

	// Second close does nothing.
	require.NoError(t, s.Close())
	assert.Len(t, order, 3)
}

func TestScopeAggregatesErrors(t *testing.T) {
	s := NewScope()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	require.NoError(t, s.Defer(func() error { return errA }))
	require.NoError(t, s.Defer(func() error { return nil }))
	require.NoError(t, s.Defer(func() error { return errB }))

	err := s.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "2 errors occurred")

	ran := false
	err = s.Defer(func() error { ran = true; return nil })
	assert.NoError(t, err)
	assert.True(t, ran)
}
