package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roadsafety-cli/internal/chainage"
	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/internal/report"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

// Backend is the set of remote operations a Coordinator drives.
// roadsafety.Client satisfies it.
type Backend interface {
	Extract(ctx context.Context, filename string, pdf []byte) (*roadsafety.ExtractResponse, error)
	ProcessAll(ctx context.Context, batch []roadsafety.EstimateRequest) (*roadsafety.EstimateResponse, error)
	Ask(ctx context.Context, question string, askContext any) (*roadsafety.AskResponse, error)
}

// Archiver keeps finished estimates. Failures are logged, never surfaced.
type Archiver interface {
	SaveReport(ctx context.Context, r model.Report) error
}

// Scope selects the context sent with a chatbot question.
type Scope string

const (
	ScopeResult    Scope = "result"
	ScopeAnalytics Scope = "analytics"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithArchiver archives every successful estimate.
func WithArchiver(a Archiver) Option {
	return func(c *Coordinator) {
		c.archive = a
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator owns the intervention list of one pipeline run and enforces
// the stage transitions. It is safe for concurrent use; backend calls run
// without the lock held, and at most one estimation is in flight at a time.
type Coordinator struct {
	backend Backend
	archive Archiver
	now     func() time.Time

	mu         sync.Mutex
	state      State
	lastActive time.Time
}

// NewCoordinator creates an idle Coordinator.
func NewCoordinator(b Backend, opts ...Option) *Coordinator {
	c := &Coordinator{backend: b, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActive = c.now()
	return c
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Stage returns the current stage.
func (c *Coordinator) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Stage
}

// LastActive returns when the coordinator last handled an operation.
func (c *Coordinator) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Submitting reports whether an estimation request is in flight.
func (c *Coordinator) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Submitting
}

// Reset discards all state and returns to idle.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{UpdatedAt: c.now()}
	c.touch()
}

// Upload sends a PDF to the extractor and starts a new run from the result.
// On failure the previous state is kept as it was.
func (c *Coordinator) Upload(ctx context.Context, filename string, pdf []byte) error {
	c.mu.Lock()
	c.touch()
	c.mu.Unlock()

	resp, err := c.backend.Extract(ctx, filename, pdf)
	if err != nil {
		zap.L().Warn("pipeline: extraction failed", zap.String("filename", filename), zap.Error(err))
		return classify("extract", err)
	}
	if resp.Filename == "" {
		resp.Filename = filename
	}
	return c.Ingest(resp)
}

// Ingest starts a new run from an extraction result, assigning ordinal ids.
// The previous run, including any in-flight estimate, is abandoned.
func (c *Coordinator) Ingest(resp *roadsafety.ExtractResponse) error {
	if resp == nil || resp.Interventions == nil {
		return eris.Wrap(ErrMalformedUpstream, "ingest: missing interventions")
	}

	records := make([]model.Intervention, len(resp.Interventions))
	for i, item := range resp.Interventions {
		records[i] = model.Intervention{
			ID:           i + 1,
			Intervention: item.Intervention,
			Chainage:     item.Chainage,
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = State{
		RunID:         uuid.New().String(),
		Stage:         StageUploaded,
		Filename:      resp.Filename,
		Warning:       resp.Warning,
		Interventions: records,
		UpdatedAt:     c.now(),
	}
	c.touch()

	zap.L().Info("pipeline: run started",
		zap.String("run_id", c.state.RunID),
		zap.String("filename", resp.Filename),
		zap.Int("interventions", len(records)),
	)
	return nil
}

// EnterReview moves an uploaded run into review and returns its records.
func (c *Coordinator) EnterReview() ([]model.Intervention, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	switch {
	case c.state.Stage == StageIdle:
		return nil, eris.Wrap(ErrMissingPrerequisite, "review: nothing uploaded")
	case c.state.Stage.frozen():
		return nil, eris.Wrap(ErrRecordsFrozen, "review")
	}

	if c.state.Stage == StageUploaded {
		c.setStage(StageReviewing)
	}
	return model.CloneInterventions(c.state.Interventions), nil
}

// UpdateField replaces one field of the record with the given id. An unknown
// id is a no-op and reports false.
func (c *Coordinator) UpdateField(id int, field model.Field, value string) (bool, error) {
	if field != model.FieldIntervention && field != model.FieldChainage {
		return false, eris.Wrapf(ErrInvalidInput, "update: unknown field %q", field)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	switch {
	case c.state.Stage.frozen():
		return false, eris.Wrap(ErrRecordsFrozen, "update")
	case c.state.Stage != StageReviewing:
		return false, eris.Wrapf(ErrMissingPrerequisite, "update: stage %s", c.state.Stage)
	case c.state.Submitting:
		return false, eris.Wrap(ErrBusy, "update")
	}

	for i := range c.state.Interventions {
		if c.state.Interventions[i].ID == id {
			c.state.Interventions[i] = c.state.Interventions[i].With(field, value)
			c.state.UpdatedAt = c.now()
			return true, nil
		}
	}
	return false, nil
}

// BuildBatch annotates each record with its parsed chainage span. Spans are
// computed fresh on every call.
func BuildBatch(records []model.Intervention) []roadsafety.EstimateRequest {
	batch := make([]roadsafety.EstimateRequest, len(records))
	for i, r := range records {
		span := chainage.Parse(r.Chainage)
		batch[i] = roadsafety.EstimateRequest{
			ID:           r.ID,
			Intervention: r.Intervention,
			Chainage:     r.Chainage,
			ChainageM: roadsafety.ChainageM{
				StartM:  span.StartM,
				EndM:    span.EndM,
				LengthM: span.LengthM,
			},
		}
	}
	return batch
}

// Submit sends the reviewed records for estimation. On success the result
// is stored verbatim and the records freeze. On failure the run stays in
// review with every edit intact, so the same call can be retried.
func (c *Coordinator) Submit(ctx context.Context) (*roadsafety.EstimateResponse, error) {
	c.mu.Lock()
	c.touch()
	switch {
	case c.state.Stage.frozen():
		c.mu.Unlock()
		return nil, eris.Wrap(ErrRecordsFrozen, "submit")
	case c.state.Stage != StageReviewing:
		stage := c.state.Stage
		c.mu.Unlock()
		return nil, eris.Wrapf(ErrMissingPrerequisite, "submit: stage %s", stage)
	case c.state.Submitting:
		c.mu.Unlock()
		return nil, eris.Wrap(ErrBusy, "submit")
	case len(c.state.Interventions) == 0:
		c.mu.Unlock()
		return nil, eris.Wrap(ErrEmptyBatch, "submit")
	}

	runID := c.state.RunID
	filename := c.state.Filename
	batch := BuildBatch(c.state.Interventions)
	c.state.Submitting = true
	c.mu.Unlock()

	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: submitting for estimation", zap.Int("interventions", len(batch)))

	start := time.Now()
	res, err := c.backend.ProcessAll(ctx, batch)

	c.mu.Lock()
	if c.state.RunID != runID {
		c.mu.Unlock()
		log.Warn("pipeline: dropping estimate for superseded run")
		return nil, eris.Wrap(ErrSuperseded, "submit")
	}
	c.state.Submitting = false
	c.touch()
	if err != nil {
		c.mu.Unlock()
		log.Warn("pipeline: estimation failed", zap.Error(err))
		return nil, classify("estimate", err)
	}
	c.state.Result = res
	c.setStage(StageEstimated)
	c.mu.Unlock()

	log.Info("pipeline: estimation complete",
		zap.Float64("grand_total", res.GrandTotal),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	c.archiveResult(ctx, runID, filename, res)
	return res, nil
}

func (c *Coordinator) archiveResult(ctx context.Context, runID, filename string, res *roadsafety.EstimateResponse) {
	if c.archive == nil {
		return
	}
	raw := res.Raw
	if len(raw) == 0 {
		b, err := json.Marshal(res)
		if err != nil {
			zap.L().Warn("pipeline: marshal result for archive", zap.Error(err))
			return
		}
		raw = b
	}
	r := model.Report{
		ID:                 uuid.New().String(),
		RunID:              runID,
		Filename:           filename,
		TotalInterventions: len(res.Interventions),
		GrandTotal:         res.GrandTotal,
		Result:             raw,
		CreatedAt:          c.now().UTC(),
	}
	if err := c.archive.SaveReport(ctx, r); err != nil {
		zap.L().Warn("pipeline: archive report failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// Result returns the stored estimate, if any.
func (c *Coordinator) Result() (*roadsafety.EstimateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Stage < StageEstimated || c.state.Result == nil {
		return nil, eris.Wrap(ErrMissingPrerequisite, "result: nothing estimated")
	}
	return c.state.Result, nil
}

// Summary enters the summary stage and derives its view.
func (c *Coordinator) Summary() (*report.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state.Stage < StageEstimated || c.state.Result == nil {
		return nil, eris.Wrap(ErrMissingPrerequisite, "summary: nothing estimated")
	}
	if c.state.Result.Interventions == nil {
		return nil, eris.Wrap(ErrNoSummary, "summary")
	}
	if c.state.Stage == StageEstimated {
		c.setStage(StageSummarized)
	}
	return report.BuildSummary(c.state.Result), nil
}

// Analytics returns the analytics view. It requires the summary stage and
// does not change stage.
func (c *Coordinator) Analytics() (*report.Analytics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state.Stage != StageSummarized {
		return nil, eris.Wrapf(ErrMissingPrerequisite, "analytics: stage %s", c.state.Stage)
	}
	if c.state.Result.Demographics == nil {
		return nil, eris.Wrap(ErrNoAnalytics, "analytics")
	}
	return report.BuildAnalytics(c.state.Result.Demographics), nil
}

// Ask sends a chatbot question with the full estimate (ScopeResult) or its
// demographics (ScopeAnalytics) as context.
func (c *Coordinator) Ask(ctx context.Context, question string, scope Scope) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", eris.Wrap(ErrInvalidInput, "ask: question is required")
	}

	c.mu.Lock()
	c.touch()
	if c.state.Stage < StageEstimated || c.state.Result == nil {
		c.mu.Unlock()
		return "", eris.Wrap(ErrMissingPrerequisite, "ask: nothing estimated")
	}
	res := c.state.Result
	c.mu.Unlock()

	var askContext any
	switch scope {
	case ScopeAnalytics:
		if res.Demographics == nil {
			return "", eris.Wrap(ErrNoAnalytics, "ask")
		}
		askContext = res.Demographics
	case ScopeResult, "":
		if len(res.Raw) > 0 {
			askContext = res.Raw
		} else {
			askContext = res
		}
	default:
		return "", eris.Wrapf(ErrInvalidInput, "ask: unknown scope %q", scope)
	}

	resp, err := c.backend.Ask(ctx, question, askContext)
	if err != nil {
		return "", classify("ask", err)
	}
	return resp.Answer, nil
}

// setStage must be called with mu held.
func (c *Coordinator) setStage(s Stage) {
	zap.L().Debug("pipeline: stage transition",
		zap.String("run_id", c.state.RunID),
		zap.Stringer("from", c.state.Stage),
		zap.Stringer("to", s),
	)
	c.state.Stage = s
	c.state.UpdatedAt = c.now()
}

// touch must be called with mu held.
func (c *Coordinator) touch() {
	c.lastActive = c.now()
}
