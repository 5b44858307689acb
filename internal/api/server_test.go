package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roadsafety-cli/internal/pipeline"
	"github.com/sells-group/roadsafety-cli/internal/resilience"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety/mocks"
)

type testEnv struct {
	handler  http.Handler
	sessions *pipeline.Sessions
	backend  *mocks.MockClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := mocks.NewMockClient(t)
	sessions := pipeline.NewSessions(func() *pipeline.Coordinator {
		return pipeline.NewCoordinator(backend)
	})
	srv := NewServer(sessions,
		WithCORSOrigins([]string{"http://localhost:5173"}),
		WithBreakers(resilience.NewBreakers(resilience.DefaultBreakerConfig())),
	)
	return &testEnv{handler: srv.Routes(), sessions: sessions, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, sessionID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["session_id"])
	return resp["session_id"]
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func sampleExtract() *roadsafety.ExtractResponse {
	return &roadsafety.ExtractResponse{
		Filename: "audit.pdf",
		Interventions: []roadsafety.ExtractedIntervention{
			{Intervention: "Install crash barrier", Chainage: "362+380 to 362+500"},
			{Intervention: "Repaint zebra crossing", Chainage: "4+200"},
		},
	}
}

func sampleEstimate() *roadsafety.EstimateResponse {
	return &roadsafety.EstimateResponse{
		GrandTotal: 1500,
		Interventions: []roadsafety.EstimatedIntervention{
			{Intervention: "Install crash barrier", ClauseUsed: "IRC:119 3.2", Cost: &roadsafety.Cost{TotalCost: 1000}},
			{Intervention: "Repaint zebra crossing", ClauseUsed: "IRC:35 4.1", Cost: &roadsafety.Cost{TotalCost: 500}},
		},
		Demographics: &roadsafety.Demographics{
			KPIs:     roadsafety.KPIs{TotalInterventions: 2, UniqueClauses: 2, GrandTotal: 1500},
			ByClause: map[string]roadsafety.ClauseTotal{"IRC:119 3.2": {Count: 1, TotalCost: 1000}},
		},
		Raw: json.RawMessage(`{"grand_total":1500,"interventions":[]}`),
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.newSession(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["sessions"])
}

func TestChainageEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/chainage?text=362%2B380+to+362%2B500", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeMap(t, rec)
	span := body["span"].(map[string]any)
	assert.EqualValues(t, 362380, span["start_m"])
	assert.EqualValues(t, 362500, span["end_m"])
	assert.EqualValues(t, 120, span["length_m"])
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/nope/review", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_session", decodeMap(t, rec)["error"])
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, env.sessions.Len())
}

func TestReviewWithoutUpload(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/review", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "no_data", body["view"])
	assert.Equal(t, "No extracted data found. Please upload the PDF again.", body["notice"])
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", map[string]string{"x": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_MalformedUpstream(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	env.backend.On("Extract", mock.Anything, "audit.pdf", []byte("%PDF-1.4")).
		Return(nil, roadsafety.ErrMalformedResponse)

	rec := env.upload(t, id, "audit.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["retryable"])
}

func TestFullFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	env.backend.On("Extract", mock.Anything, "audit.pdf", []byte("%PDF-1.4")).Return(sampleExtract(), nil)
	env.backend.On("ProcessAll", mock.Anything, mock.MatchedBy(func(b []roadsafety.EstimateRequest) bool {
		return len(b) == 2 && b[1].Chainage == "4+250" && b[1].ChainageM.StartM == 4250 && b[0].ChainageM.LengthM == 120
	})).Return(sampleEstimate(), nil).Once()
	env.backend.On("Ask", mock.Anything, "Which clause?", mock.Anything).
		Return(&roadsafety.AskResponse{Answer: "IRC:119 3.2"}, nil)

	rec := env.upload(t, id, "audit.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uploaded", decodeMap(t, rec)["stage"])

	rec = env.do(t, http.MethodGet, base+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeMap(t, rec)["interventions"], 2)

	rec = env.do(t, http.MethodPatch, base+"/interventions/2", updateRequest{Field: "chainage", Value: "4+250"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["updated"])

	rec = env.do(t, http.MethodPatch, base+"/interventions/42", updateRequest{Field: "chainage", Value: "1+000"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["updated"])

	rec = env.do(t, http.MethodGet, base+"/analytics", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "estimated", body["stage"])
	assert.EqualValues(t, 1500, body["result"].(map[string]any)["grand_total"])

	rec = env.do(t, http.MethodPatch, base+"/interventions/1", updateRequest{Field: "chainage", Value: "0+000"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeMap(t, rec)
	assert.EqualValues(t, 2, summary["total_interventions"])
	assert.EqualValues(t, 750, summary["avg_cost"])

	rec = env.do(t, http.MethodGet, base+"/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeMap(t, rec)["clauses"], 1)

	rec = env.do(t, http.MethodPost, base+"/chat", chatRequest{Question: "Which clause?", Scope: "result"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IRC:119 3.2", decodeMap(t, rec)["answer"])
}

func TestSummary_NoInterventionsIsNoDataView(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	c, ok := env.sessions.Get(id)
	require.True(t, ok)
	require.NoError(t, c.Ingest(sampleExtract()))
	_, err := c.EnterReview()
	require.NoError(t, err)

	env.backend.On("ProcessAll", mock.Anything, mock.Anything).
		Return(&roadsafety.EstimateResponse{Interventions: nil}, nil).Once()

	rec := env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/summary", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "no_data", body["view"])
	assert.Equal(t, "missing_prerequisite", body["error"])
	assert.Equal(t, "No summary data available.", body["notice"])
	assert.Equal(t, false, body["retryable"])
}

func TestResult(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	rec := env.do(t, http.MethodGet, base+"/result", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_data", decodeMap(t, rec)["view"])

	c, _ := env.sessions.Get(id)
	require.NoError(t, c.Ingest(sampleExtract()))
	_, err := c.EnterReview()
	require.NoError(t, err)
	env.backend.On("ProcessAll", mock.Anything, mock.Anything).Return(sampleEstimate(), nil).Once()
	_, err = c.Submit(context.Background())
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, base+"/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "estimated", body["stage"])
	assert.EqualValues(t, 1500, body["result"].(map[string]any)["grand_total"])
}

func TestSubmit_TransportFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	c, ok := env.sessions.Get(id)
	require.True(t, ok)
	require.NoError(t, c.Ingest(sampleExtract()))
	_, err := c.EnterReview()
	require.NoError(t, err)

	env.backend.On("ProcessAll", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).Once()

	rec := env.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "transport", body["error"])
	assert.Equal(t, pipeline.StageReviewing, c.Stage())
}

func TestSubmit_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	c, _ := env.sessions.Get(id)
	require.NoError(t, c.Ingest(&roadsafety.ExtractResponse{Interventions: []roadsafety.ExtractedIntervention{}}))
	_, err := c.EnterReview()
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdate_BadInput(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	rec := env.do(t, http.MethodPatch, base+"/interventions/abc", updateRequest{Field: "chainage"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, base+"/interventions/1", updateRequest{Field: "clause"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPatch, base+"/interventions/1", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_EmptyQuestion(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", chatRequest{Question: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind pipeline.Kind
		want int
	}{
		{pipeline.KindMalformedUpstream, http.StatusBadGateway},
		{pipeline.KindTransport, http.StatusServiceUnavailable},
		{pipeline.KindMissingPrerequisite, http.StatusConflict},
		{pipeline.KindConflict, http.StatusConflict},
		{pipeline.KindInvalidInput, http.StatusBadRequest},
		{pipeline.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}
