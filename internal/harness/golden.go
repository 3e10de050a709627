package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bir/internal/ir"
)

// Snapshot renders a scenario's trace and output as canonical JSON. This
// is the golden file content.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		event := map[string]any{
			"type": e.Type,
			"func": e.Func,
			"seq":  e.Seq,
		}
		switch e.Type {
		case EventCall:
			args := make([]any, len(e.Args))
			for j, a := range e.Args {
				args[j] = a
			}
			event["args"] = args
		case EventReturn:
			event["value"] = e.Value
		case EventFault:
			event["fault"] = e.Fault
		}
		trace[i] = event
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"trace":         trace,
		"output":        result.Output,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be run. A mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// GoldenPath returns where the golden file for a scenario file lives:
// a golden/ directory next to it, named after the file.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// WriteGolden writes the snapshot of result to path, creating its
// directory if needed.
func WriteGolden(path, name string, result *Result) error {
	data, err := Snapshot(name, result)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of result equals the golden
// file at path.
func CompareGolden(path, name string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}
	got, err := Snapshot(name, result)
	if err != nil {
		return false, fmt.Errorf("snapshot: %w", err)
	}
	return bytes.Equal(want, got), nil
}
