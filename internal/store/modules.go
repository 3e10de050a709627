package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bir/internal/ir"
)

// ModuleRecord is one cached .bir image.
type ModuleRecord struct {
	Hash        string // ir.ProgramHash of the source program
	Version     uint8  // wire format version of Bytes
	Bytes       []byte
	Source      string // where the program was loaded from, informational
	ToolVersion string
}

// PutModule caches an encoded module. Uses ON CONFLICT(hash) DO NOTHING:
// the first image written for a hash wins and later writes are ignored.
// An empty ToolVersion is recorded as ir.ToolVersion.
func (s *Store) PutModule(ctx context.Context, rec ModuleRecord) error {
	if rec.Hash == "" {
		return fmt.Errorf("put module: empty hash")
	}
	if rec.ToolVersion == "" {
		rec.ToolVersion = ir.ToolVersion
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO modules (hash, format_version, bytes, source, tool_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		rec.Hash,
		int(rec.Version),
		rec.Bytes,
		rec.Source,
		rec.ToolVersion,
	)
	if err != nil {
		return fmt.Errorf("put module: %w", err)
	}
	return nil
}

// GetModule returns the cached module for hash, or ErrNotFound.
func (s *Store) GetModule(ctx context.Context, hash string) (ModuleRecord, error) {
	var (
		rec     ModuleRecord
		version int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, format_version, bytes, source, tool_version
		FROM modules
		WHERE hash = ?
	`, hash).Scan(&rec.Hash, &version, &rec.Bytes, &rec.Source, &rec.ToolVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ModuleRecord{}, fmt.Errorf("get module %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return ModuleRecord{}, fmt.Errorf("get module %s: %w", hash, err)
	}
	rec.Version = uint8(version)
	return rec, nil
}

// ListModules returns every cached module without its bytes, ordered by hash.
func (s *Store) ListModules(ctx context.Context) ([]ModuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, format_version, source, tool_version
		FROM modules
		ORDER BY hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	mods := []ModuleRecord{}
	for rows.Next() {
		var (
			rec     ModuleRecord
			version int
		)
		if err := rows.Scan(&rec.Hash, &version, &rec.Source, &rec.ToolVersion); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		rec.Version = uint8(version)
		mods = append(mods, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return mods, nil
}
