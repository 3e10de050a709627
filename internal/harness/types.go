package harness

import "github.com/hashicorp/go-multierror"

// Trace event types.
const (
	EventCall   = "call"
	EventReturn = "return"
	EventFault  = "fault"
)

// TraceEvent is one entry in a scenario trace.
type TraceEvent struct {
	Type  string   `json:"type"`
	Func  string   `json:"func"`
	Args  []uint64 `json:"args,omitempty"`  // call only
	Value uint64   `json:"value,omitempty"` // return only
	Fault string   `json:"fault,omitempty"` // fault only
	Seq   int64    `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace holds the events in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Output is everything the program wrote.
	Output string `json:"output"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Err returns the failed expectations as one error, or nil.
func (r *Result) Err() error {
	var result *multierror.Error
	for _, e := range r.Errors {
		result = multierror.Append(result, &ExpectationError{Message: e})
	}
	return result.ErrorOrNil()
}

// ExpectationError is one failed expectation.
type ExpectationError struct {
	Message string
}

func (e *ExpectationError) Error() string { return e.Message }

func (r *Result) addCall(fn string, args []uint64, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventCall, Func: fn, Args: args, Seq: seq})
}

func (r *Result) addReturn(fn string, value uint64, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventReturn, Func: fn, Value: value, Seq: seq})
}

func (r *Result) addFault(fn, code string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventFault, Func: fn, Fault: code, Seq: seq})
}

// sequence numbers the events of one run. The first event is 1.
type sequence struct {
	n int64
}

func (s *sequence) next() int64 {
	s.n++
	return s.n
}
