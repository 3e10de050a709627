package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/testutil"
)

func TestRecordRunRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hash := putAnswerModule(t, s)

	want := RunRecord{
		ID:         "run-1",
		ModuleHash: hash,
		Func:       "main",
		Args:       []uint64{1, 1 << 60, ^uint64(0)},
		Result:     ^uint64(0),
		Seq:        1,
	}
	require.NoError(t, s.RecordRun(ctx, want))

	runs, err := s.ListRuns(ctx, hash)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, want, runs[0])
	assert.False(t, runs[0].Faulted())
}

func TestRecordRunFault(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hash := putAnswerModule(t, s)

	require.NoError(t, s.RecordRun(ctx, RunRecord{
		ID:         "run-1",
		ModuleHash: hash,
		Func:       "main",
		FaultCode:  "DIVISION_BY_ZERO",
		Message:    "division by zero",
		Seq:        1,
	}))

	runs, err := s.ListRuns(ctx, hash)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Faulted())
	assert.Equal(t, []uint64{}, runs[0].Args)
}

func TestRecordRunRequiresModule(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordRun(context.Background(), RunRecord{ID: "r", ModuleHash: "missing", Func: "main", Seq: 1})
	require.Error(t, err)
}

func TestRecordRunDuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hash := putAnswerModule(t, s)

	require.NoError(t, s.RecordRun(ctx, RunRecord{ID: "r", ModuleHash: hash, Func: "main", Result: 1, Seq: 1}))
	require.NoError(t, s.RecordRun(ctx, RunRecord{ID: "r", ModuleHash: hash, Func: "main", Result: 2, Seq: 2}))

	runs, err := s.ListRuns(ctx, hash)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, uint64(1), runs[0].Result)
}

func TestListRunsOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hash := putAnswerModule(t, s)
	require.NoError(t, s.PutModule(ctx, ModuleRecord{Hash: "other", Version: 1, Bytes: []byte{0}}))

	// Inserted out of order; equal seqs tie-break on id.
	for _, r := range []RunRecord{
		{ID: "c", ModuleHash: hash, Func: "main", Seq: 2},
		{ID: "b", ModuleHash: hash, Func: "main", Seq: 1},
		{ID: "a", ModuleHash: hash, Func: "main", Seq: 2},
		{ID: "z", ModuleHash: "other", Func: "main", Seq: 0},
	} {
		require.NoError(t, s.RecordRun(ctx, r))
	}

	runs, err := s.ListRuns(ctx, hash)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "z", all[0].ID)
}

func TestListRunsEmpty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestNextSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hash := putAnswerModule(t, s)

	seq, err := s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, s.RecordRun(ctx, RunRecord{ID: "r", ModuleHash: hash, Func: "main", Seq: 7}))
	seq, err = s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), seq)
}

func TestIDGenerators(t *testing.T) {
	var gen IDGenerator = UUIDv7Generator{}
	id := gen.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, gen.Generate())

	gen = testutil.NewSequentialIDGenerator("run")
	assert.Equal(t, "run-0001", gen.Generate())
	assert.Equal(t, "run-0002", gen.Generate())
}

func TestWordsMarshal(t *testing.T) {
	s, err := marshalWords([]uint64{0, 42, ^uint64(0)})
	require.NoError(t, err)
	assert.Equal(t, "[0,42,18446744073709551615]", s)

	words, err := unmarshalWords(s)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 42, ^uint64(0)}, words)

	_, err = unmarshalWords("[-1]")
	require.Error(t, err)
}
