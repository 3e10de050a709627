package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/ir"
	"github.com/roach88/bir/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putAnswerModule caches the encoded answer program and returns its hash.
func putAnswerModule(t *testing.T, s *Store) string {
	t.Helper()
	p := testutil.AnswerProgram()
	data, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	hash := ir.MustProgramHash(p)
	err = s.PutModule(context.Background(), ModuleRecord{
		Hash:    hash,
		Version: ir.FormatVersion,
		Bytes:   data,
		Source:  "answer.cue",
	})
	if err != nil {
		t.Fatalf("PutModule() failed: %v", err)
	}
	return hash
}
