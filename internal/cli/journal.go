package cli

import (
	"context"
	"fmt"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/ir"
	"github.com/roach88/bir/internal/store"
)

// storeHandle adds the module cache and run journal conventions of the
// CLI to a store.
type storeHandle struct {
	*store.Store
	ids store.IDGenerator
}

// withStore opens the database at path, runs fn and closes it again.
func withStore(path string, fn func(*storeHandle) error) error {
	return withStoreIDs(path, store.UUIDv7Generator{}, fn)
}

func withStoreIDs(path string, ids store.IDGenerator, fn func(*storeHandle) error) (err error) {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(&storeHandle{Store: st, ids: ids})
}

// cacheProgram stores the encoded image of p under its program hash and
// returns the hash.
func (h *storeHandle) cacheProgram(ctx context.Context, p *ir.Program, source string) (string, error) {
	hash, err := ir.ProgramHash(p)
	if err != nil {
		return "", err
	}
	buf, err := codec.Encode(p)
	if err != nil {
		return "", err
	}
	err = h.PutModule(ctx, store.ModuleRecord{
		Hash:    hash,
		Version: ir.FormatVersion,
		Bytes:   buf,
		Source:  source,
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// recordCall appends one call outcome to the journal. A faulted call is
// stored with its fault code and message and a zero result.
func (h *storeHandle) recordCall(ctx context.Context, hash, fn string, args []uint64, result uint64, callErr error) (store.RunRecord, error) {
	seq, err := h.NextSeq(ctx)
	if err != nil {
		return store.RunRecord{}, err
	}
	run := store.RunRecord{
		ID:         h.ids.Generate(),
		ModuleHash: hash,
		Func:       fn,
		Args:       args,
		Result:     result,
		Seq:        seq,
	}
	if callErr != nil {
		run.Result = 0
		run.FaultCode = faultCode(callErr)
		run.Message = callErr.Error()
	}
	if err := h.RecordRun(ctx, run); err != nil {
		return store.RunRecord{}, fmt.Errorf("journal %s: %w", fn, err)
	}
	return run, nil
}

// loadCached decodes the module cached under hash.
func (h *storeHandle) loadCached(ctx context.Context, hash string) (*codec.Module, error) {
	rec, err := h.GetModule(ctx, hash)
	if err != nil {
		return nil, err
	}
	return codec.Decode(rec.Bytes)
}
