package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/roadsafety-cli/internal/pipeline"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Notice    string `json:"notice"`
	Retryable bool   `json:"retryable"`
	View      string `json:"view,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k pipeline.Kind) int {
	switch k {
	case pipeline.KindMalformedUpstream:
		return http.StatusBadGateway
	case pipeline.KindTransport:
		return http.StatusServiceUnavailable
	case pipeline.KindMissingPrerequisite, pipeline.KindConflict:
		return http.StatusConflict
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := pipeline.KindOf(err)
	body := errorBody{
		Error:     kind.String(),
		Notice:    pipeline.Notice(err),
		Retryable: kind.Retryable(),
	}
	if kind == pipeline.KindMissingPrerequisite {
		body.View = "no_data"
	}
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		zap.L().Warn("api: request failed", zap.String("kind", kind.String()), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, notice string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: pipeline.KindInvalidInput.String(), Notice: notice})
}
