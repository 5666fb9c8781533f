package generator

import "fmt"

// DegradedAnswer is the fixed text returned to users when generation fails.
// It never contains upstream error details.
const DegradedAnswer = "Sorry, I couldn't generate an answer right now. Please try again later."

// Reason classifies a generation failure.
type Reason string

const (
	// ReasonMissingCredential means no completion backend is configured.
	ReasonMissingCredential Reason = "missing_credential"
	// ReasonCapacity means no in-flight slot became free in time.
	ReasonCapacity Reason = "capacity"
	// ReasonTimeout means the call or the request deadline expired.
	ReasonTimeout Reason = "timeout"
	// ReasonUpstream covers transport and API errors from the backend.
	ReasonUpstream Reason = "upstream"
	// ReasonEmptyResponse means the backend answered with no text.
	ReasonEmptyResponse Reason = "empty_response"
)

// Failure describes why an Answer is degraded. Err carries the real cause
// for operator logs and must not be shown to end users.
type Failure struct {
	// Reason is the failure class.
	Reason Reason
	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("generator: %s: %v", f.Reason, f.Err)
	}
	return "generator: " + string(f.Reason)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// Answer is the result of a generation call. Exactly one of a model-produced
// Text or a non-nil Failure (with Text set to DegradedAnswer) is meaningful.
type Answer struct {
	// Text is the answer shown to the user.
	Text string
	// Failure is non-nil when Text is the degraded fallback.
	Failure *Failure
}

// Degraded reports whether the answer is the fallback text.
func (a Answer) Degraded() bool { return a.Failure != nil }

// degraded builds a fallback Answer.
func degraded(reason Reason, err error) Answer {
	return Answer{Text: DegradedAnswer, Failure: &Failure{Reason: reason, Err: err}}
}
