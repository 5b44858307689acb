package tui

import "github.com/sells-group/roadsafety-cli/pkg/roadsafety"

// SubmitDoneMsg carries the outcome of an estimation request.
type SubmitDoneMsg struct {
	Result *roadsafety.EstimateResponse
	Err    error
}
