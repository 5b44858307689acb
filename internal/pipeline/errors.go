package pipeline

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

var (
	// ErrMalformedUpstream means a backend answered without the fields a
	// transition needs. The transition is aborted and prior state kept.
	ErrMalformedUpstream = eris.New("pipeline: malformed upstream data")
	// ErrTransport means the backend could not be reached or failed. The
	// caller may retry; prior state is untouched.
	ErrTransport = eris.New("pipeline: backend unavailable")
	// ErrMissingPrerequisite means a stage was entered before the stage that
	// feeds it.
	ErrMissingPrerequisite = eris.New("pipeline: missing prerequisite state")
	// ErrNoSummary means the estimate carries no interventions list.
	ErrNoSummary = eris.New("pipeline: no summary data available")
	// ErrNoAnalytics means the estimate carries no demographics block.
	ErrNoAnalytics = eris.New("pipeline: no analytics data")
	// ErrBusy means an estimation request is already in flight.
	ErrBusy = eris.New("pipeline: estimation in progress")
	// ErrRecordsFrozen means the interventions were already submitted.
	ErrRecordsFrozen = eris.New("pipeline: interventions frozen after submission")
	// ErrEmptyBatch means there is nothing to submit.
	ErrEmptyBatch = eris.New("pipeline: no interventions to submit")
	// ErrInvalidInput covers bad edit fields and empty questions.
	ErrInvalidInput = eris.New("pipeline: invalid input")
	// ErrSuperseded means a new upload replaced the run while a request for
	// the old run was in flight; its result was dropped.
	ErrSuperseded = eris.New("pipeline: run superseded by a new upload")
)

// Kind groups errors by how the caller should present them.
type Kind int

const (
	KindNone Kind = iota
	KindMalformedUpstream
	KindTransport
	KindMissingPrerequisite
	KindConflict
	KindInvalidInput
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMalformedUpstream:
		return "malformed_upstream"
	case KindTransport:
		return "transport"
	case KindMissingPrerequisite:
		return "missing_prerequisite"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Retryable reports whether repeating the same action may succeed.
func (k Kind) Retryable() bool {
	return k == KindTransport
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMalformedUpstream):
		return KindMalformedUpstream
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrMissingPrerequisite),
		errors.Is(err, ErrNoSummary),
		errors.Is(err, ErrNoAnalytics):
		return KindMissingPrerequisite
	case errors.Is(err, ErrBusy),
		errors.Is(err, ErrRecordsFrozen),
		errors.Is(err, ErrSuperseded):
		return KindConflict
	case errors.Is(err, ErrEmptyBatch),
		errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// Notice returns the user-facing message for err.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSummary):
		return "No summary data available."
	case errors.Is(err, ErrNoAnalytics):
		return "No analytics data."
	case errors.Is(err, ErrMissingPrerequisite):
		return "No extracted data found. Please upload the PDF again."
	case errors.Is(err, ErrMalformedUpstream):
		return "The backend returned incomplete data. Please upload the report again."
	case errors.Is(err, ErrTransport):
		return "Cost estimation service is unavailable. Your edits are kept; please retry."
	case errors.Is(err, ErrBusy):
		return "Cost estimates are already being computed."
	case errors.Is(err, ErrRecordsFrozen):
		return "These interventions were already submitted. Upload a new report to make changes."
	case errors.Is(err, ErrSuperseded):
		return "A new report was uploaded; the earlier estimate was discarded."
	case errors.Is(err, ErrEmptyBatch):
		return "There are no interventions to estimate."
	case errors.Is(err, ErrInvalidInput):
		return "The request was not valid."
	default:
		return "Something went wrong."
	}
}

// classify converts a backend error into ErrMalformedUpstream or ErrTransport.
func classify(op string, err error) error {
	if errors.Is(err, roadsafety.ErrMalformedResponse) {
		return eris.Wrapf(ErrMalformedUpstream, "%s: %v", op, err)
	}
	return eris.Wrapf(ErrTransport, "%s: %v", op, err)
}
