package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step   int      `json:"step"`
	Op     string   `json:"op"`
	Index  *int     `json:"index,omitempty"`
	Values []string `json:"values,omitempty"`

	// Result is the operation's return value, or nil for operations that
	// return nothing or failed.
	Result any `json:"result"`

	// Error is the error kind (see ErrorKind) when the operation failed.
	Error string `json:"error,omitempty"`

	// ModCount is the adapter's modification count after the step.
	ModCount int64 `json:"mod_count"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the list content after the last step.
	Final []string `json:"final"`

	// ModCount is the adapter's modification count after the last step.
	ModCount int64 `json:"mod_count"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
