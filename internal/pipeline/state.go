package pipeline

import (
	"time"

	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

// Stage is a position in the upload → review → estimate → summary flow.
// Analytics is a read-only view of StageSummarized, not a stage of its own.
type Stage int

const (
	StageIdle Stage = iota
	StageUploaded
	StageReviewing
	StageEstimated
	StageSummarized
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageUploaded:
		return "uploaded"
	case StageReviewing:
		return "reviewing"
	case StageEstimated:
		return "estimated"
	case StageSummarized:
		return "summarized"
	default:
		return "unknown"
	}
}

// frozen reports whether records can no longer be edited.
func (s Stage) frozen() bool {
	return s >= StageEstimated
}

// State is everything one pipeline run knows. A new upload replaces it
// wholesale; nothing carries over between runs.
type State struct {
	RunID         string                       `json:"run_id,omitempty"`
	Stage         Stage                        `json:"-"`
	StageName     string                       `json:"stage"`
	Filename      string                       `json:"filename,omitempty"`
	Warning       string                       `json:"warning,omitempty"`
	Interventions []model.Intervention         `json:"interventions"`
	Result        *roadsafety.EstimateResponse `json:"-"`
	Submitting    bool                         `json:"submitting"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

// clone returns a copy safe to hand out. Result is shared; it is never
// mutated after being stored.
func (s State) clone() State {
	s.Interventions = model.CloneInterventions(s.Interventions)
	s.StageName = s.Stage.String()
	return s
}
