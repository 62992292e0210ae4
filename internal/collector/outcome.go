package collector

// OutcomeStatus tags the variant of a fetch outcome.
type OutcomeStatus string

// Outcome variants. An outcome is exactly one of these.
const (
	StatusSuccess OutcomeStatus = "success"
	StatusSkip    OutcomeStatus = "skip"
	StatusError   OutcomeStatus = "error"
)

// Outcome is the tagged result every fetcher returns. The dispatcher never
// inspects fetcher-internal state, only this value. Skip is a first-class
// variant rather than a matched error string: it marks a benign no-op run
// (remote content unchanged) and must never be reported as a source error.
type Outcome struct {
	Status    OutcomeStatus
	Items     []Item
	Reason    string // skip reason
	Message   string // error message
	Retryable bool   // whether the next scheduled run is expected to succeed
}

// Success builds a successful outcome carrying the normalized items.
func Success(items []Item) Outcome {
	return Outcome{Status: StatusSuccess, Items: items}
}

// Skip builds a benign no-op outcome with the given reason.
func Skip(reason string) Outcome {
	return Outcome{Status: StatusSkip, Reason: reason}
}

// Failure builds an error outcome. Retryable records whether the failure is
// expected to clear on a later run; it does not trigger an in-process retry.
func Failure(message string, retryable bool) Outcome {
	return Outcome{Status: StatusError, Message: message, Retryable: retryable}
}

// IsSuccess reports whether the outcome is the success variant.
func (o Outcome) IsSuccess() bool { return o.Status == StatusSuccess }

// IsSkip reports whether the outcome is the skip variant.
func (o Outcome) IsSkip() bool { return o.Status == StatusSkip }

// IsError reports whether the outcome is the error variant.
func (o Outcome) IsError() bool { return o.Status == StatusError }

// SkipUnchanged is the conventional reason for skipping a source whose remote
// content has not changed since the last successful fetch.
const SkipUnchanged = "Last-Modified < Last-Attempted"
