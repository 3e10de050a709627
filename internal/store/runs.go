package store

import (
	"context"
	"database/sql"
	"fmt"
)

// RunRecord is one top-level call recorded in the journal. A run that
// faulted has a non-empty FaultCode and Message; Result is then zero.
type RunRecord struct {
	ID         string
	ModuleHash string
	Func       string
	Args       []uint64
	Result     uint64
	FaultCode  string
	Message    string
	Seq        int64
}

// Faulted reports whether the run ended in a runtime fault.
func (r RunRecord) Faulted() bool { return r.FaultCode != "" }

// RecordRun appends a run to the journal. Duplicate IDs are ignored.
// The referenced module must already be cached.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) error {
	argsJSON, err := marshalWords(run.Args)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, module_hash, func, args, result, fault_code, message, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ModuleHash,
		run.Func,
		argsJSON,
		int64(run.Result),
		run.FaultCode,
		run.Message,
		run.Seq,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns the runs against moduleHash, or every run when
// moduleHash is empty. Ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, moduleHash string) ([]RunRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if moduleHash == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, module_hash, func, args, result, fault_code, message, seq
			FROM runs
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, module_hash, func, args, result, fault_code, message, seq
			FROM runs
			WHERE module_hash = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, moduleHash)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// NextSeq returns one more than the highest recorded seq, starting at 1.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	var top sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&top); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return top.Int64 + 1, nil
}

func scanRun(rows *sql.Rows) (RunRecord, error) {
	var (
		run      RunRecord
		argsJSON string
		result   int64
	)
	if err := rows.Scan(&run.ID, &run.ModuleHash, &run.Func, &argsJSON, &result, &run.FaultCode, &run.Message, &run.Seq); err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	args, err := unmarshalWords(argsJSON)
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Args = args
	run.Result = uint64(result)
	return run, nil
}
