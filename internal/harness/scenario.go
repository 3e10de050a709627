package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of calls into one program with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Program is the path to a .cue file, a CUE package directory or a
	// .bir module. LoadScenario resolves it relative to the scenario file.
	Program string `yaml:"program"`

	// Externals seeds the interpreter's externals table.
	Externals map[string]uint64 `yaml:"externals,omitempty"`

	// Calls run in order against the same interpreter, so global state
	// carries over from one call to the next.
	Calls []Call `yaml:"calls"`

	// Output, when set, must equal everything the program wrote.
	Output *string `yaml:"output,omitempty"`
}

// Call is one top-level function call.
type Call struct {
	Func   string   `yaml:"func"`
	Args   []uint64 `yaml:"args,omitempty"`
	Expect *Expect  `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a call. At most one field is set; a
// nil Expect only requires that the call does not fault.
type Expect struct {
	Return *uint64 `yaml:"return,omitempty"`
	Fault  string  `yaml:"fault,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if s.Program != "" && !filepath.IsAbs(s.Program) {
		s.Program = filepath.Join(filepath.Dir(path), s.Program)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); err != nil {
		return fmt.Errorf("program not found: %s", s.Program)
	}
	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}
	for i, c := range s.Calls {
		if c.Func == "" {
			return fmt.Errorf("calls[%d]: func is required", i)
		}
		if c.Expect != nil && c.Expect.Return != nil && c.Expect.Fault != "" {
			return fmt.Errorf("calls[%d].expect: return and fault are mutually exclusive", i)
		}
	}
	return nil
}
