package harness

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// Completion outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TraceEvent records one step invocation or its completion.
// Paths never appear in a trace so that golden files are stable across
// temporary directories.
type TraceEvent struct {
	Type    string         `json:"type"` // "invocation" or "completion"
	Op      string         `json:"op,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
	Seq     int64          `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds invocations and completions in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds validation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final observation of the property, mirror and lock file,
	// keyed by StateProperty, StateFile and StateLock.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(op string, args map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: EventInvocation,
		Op:   op,
		Args: args,
		Seq:  seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(outcome string, result map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventCompletion,
		Outcome: outcome,
		Result:  result,
		Seq:     seq,
	})
}
