package target

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Scope owns backend state created through it. Release functions
// registered with Defer run in reverse order when the scope closes.
type Scope struct {
	mu       sync.Mutex
	releases []func() error
	closed   bool
}

// NewScope returns an open scope.
func NewScope() *Scope {
	return &Scope{}
}

// Defer registers fn to run when the scope closes. Deferring on a closed
// scope runs fn immediately and returns its error.
func (s *Scope) Defer(fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fn()
	}
	s.releases = append(s.releases, fn)
	s.mu.Unlock()
	return nil
}

// Close runs every release function, last registered first, and returns
// all of their errors combined. Closing twice is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.closed = true
	s.mu.Unlock()

	var result *multierror.Error
	for i := len(releases) - 1; i >= 0; i-- {
		if err := releases[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
