package harness

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/testutil"
	"github.com/roach88/bir/internal/vm"
)

func TestScenariosGolden(t *testing.T) {
	for _, name := range []string{"sum", "counter", "hello"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.NoError(t, result.Err())
		})
	}
}

func TestRunCounterTrace(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "counter.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 12)

	fault := result.Trace[9]
	assert.Equal(t, EventFault, fault.Type)
	assert.Equal(t, "div", fault.Func)
	assert.Equal(t, string(vm.FaultDivisionByZero), fault.Fault)
	assert.Equal(t, int64(10), fault.Seq)

	last := result.Trace[11]
	assert.Equal(t, EventReturn, last.Type)
	assert.Equal(t, uint64(3), last.Value)
}

func TestRunIsRepeatable(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "sum.yaml"))
	require.NoError(t, err)

	h := New()
	first, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	second, err := h.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunNumbersTraceFromOne(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "sum.yaml"))
	require.NoError(t, err)

	h := New()
	results := make([]*Result, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := h.Run(context.Background(), s)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		require.Len(t, r.Trace, 6)
		for i, ev := range r.Trace {
			assert.Equal(t, int64(i+1), ev.Seq)
		}
		assert.Equal(t, results[0], r)
	}
}

func TestRunReportsFailedExpectations(t *testing.T) {
	dir := t.TempDir()
	copyProgram(t, "counter.cue", dir)
	path := writeScenario(t, dir, "bad.yaml", `
name: bad
description: every expectation is wrong
program: counter.cue
calls:
  - func: bump
    expect:
      return: 5
  - func: div
    args: [1, 0]
  - func: div
    args: [4, 2]
    expect:
      fault: DIVISION_BY_ZERO
  - func: div
    args: [4, 0]
    expect:
      fault: STACK_OVERFLOW
  - func: nowhere
output: "x"
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "expected return 5, got 1")
	assert.Contains(t, result.Errors[1], "unexpected fault")
	assert.Contains(t, result.Errors[2], "expected fault DIVISION_BY_ZERO, returned 2")
	assert.Contains(t, result.Errors[3], "expected fault STACK_OVERFLOW, got DIVISION_BY_ZERO")
	assert.Contains(t, result.Errors[4], `calls[4] nowhere: unexpected fault: undefined symbol "nowhere"`)
	assert.Contains(t, result.Errors[5], `output: expected "x", got ""`)

	assert.Equal(t, "UNDEFINED_SYMBOL", result.Trace[9].Fault)
	require.Error(t, result.Err())
	assert.Contains(t, result.Err().Error(), "6 errors occurred")
}

func TestRunFromModuleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, codec.WriteFile(filepath.Join(dir, "answer.bir"), testutil.AnswerProgram()))
	path := writeScenario(t, dir, "answer.yaml", `
name: answer
description: runs a prebuilt module
program: answer.bir
calls:
  - func: main
    expect:
      return: 42
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithVMOptions(t *testing.T) {
	t.Run("globals do not fit", func(t *testing.T) {
		s, err := LoadScenario(filepath.Join("testdata", "scenarios", "counter.yaml"))
		require.NoError(t, err)

		_, err = New(WithVMOptions(vm.WithMemorySize(8))).Run(context.Background(), s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create interpreter")
	})

	t.Run("frames do not fit", func(t *testing.T) {
		s, err := LoadScenario(filepath.Join("testdata", "scenarios", "sum.yaml"))
		require.NoError(t, err)

		result, err := New(WithVMOptions(vm.WithMemorySize(16))).Run(context.Background(), s)
		require.NoError(t, err)
		assert.False(t, result.Pass)
		assert.Equal(t, string(vm.FaultStackOverflow), result.Trace[1].Fault)
	})
}

func TestRunUnloadableProgram(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.bir"), []byte{0xDE, 0xBC, 0x07}, 0644))
	path := writeScenario(t, dir, "junk.yaml", `
name: junk
program: junk.bir
calls:
  - func: main
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.True(t, codec.IsFormatError(err))
}

func TestLoadScenarioValidation(t *testing.T) {
	dir := t.TempDir()
	copyProgram(t, "sum.cue", dir)

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing name", "program: sum.cue\ncalls: [{func: sum}]\n", "name is required"},
		{"missing program", "name: x\ncalls: [{func: sum}]\n", "program is required"},
		{"program not found", "name: x\nprogram: nope.cue\ncalls: [{func: sum}]\n", "program not found"},
		{"no calls", "name: x\nprogram: sum.cue\n", "calls list is required"},
		{"call without func", "name: x\nprogram: sum.cue\ncalls: [{args: [1]}]\n", "calls[0]: func is required"},
		{"conflicting expect", "name: x\nprogram: sum.cue\ncalls: [{func: sum, expect: {return: 1, fault: X}}]\n", "mutually exclusive"},
		{"unknown field", "name: x\nprogram: sum.cue\ncals: []\n", "parse YAML"},
		{"negative arg", "name: x\nprogram: sum.cue\ncalls: [{func: sum, args: [-1]}]\n", "parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, dir, "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenarioResolvesProgramPath(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "sum.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "programs", "sum.cue"), s.Program)
}

func TestSnapshotAndGoldenFiles(t *testing.T) {
	result := NewResult()
	result.addCall("f", []uint64{1, 2}, 1)
	result.addFault("f", "BAD_ADDRESS", 2)
	result.Output = "ok"

	data, err := Snapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"output":"ok","scenario_name":"snap","trace":[{"args":[1,2],"func":"f","seq":1,"type":"call"},{"fault":"BAD_ADDRESS","func":"f","seq":2,"type":"fault"}]}`,
		string(data))

	path := GoldenPath(filepath.Join(t.TempDir(), "snap.yaml"))
	assert.Equal(t, "snap.golden", filepath.Base(path))
	assert.Equal(t, "golden", filepath.Base(filepath.Dir(path)))

	require.NoError(t, WriteGolden(path, "snap", result))
	match, err := CompareGolden(path, "snap", result)
	require.NoError(t, err)
	assert.True(t, match)

	result.Output = "changed"
	match, err = CompareGolden(path, "snap", result)
	require.NoError(t, err)
	assert.False(t, match)

	_, err = CompareGolden(filepath.Join(t.TempDir(), "missing.golden"), "snap", result)
	require.Error(t, err)
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func copyProgram(t *testing.T, name, dir string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "programs", name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}
