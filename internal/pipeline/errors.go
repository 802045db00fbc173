package pipeline

import "fmt"

// ValidationError rejects a session before any work starts. It names
// the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WorkflowError wraps an unexpected failure inside one processing
// strategy. The selector catches it and reruns the session through the
// sequential path; it only surfaces to the caller when both strategies
// fail.
type WorkflowError struct {
	Stage string
	Err   error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow stage %s: %v", e.Stage, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }
