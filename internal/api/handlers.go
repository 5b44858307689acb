package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/roadsafety-cli/internal/chainage"
	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/internal/pipeline"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

type ctxKey struct{}

// withSession resolves {sessionID} to its coordinator.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{
				Error:  "unknown_session",
				Notice: "Session not found. Start a new session and upload the report again.",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	})
}

func coordinator(r *http.Request) *pipeline.Coordinator {
	return r.Context().Value(ctxKey{}).(*pipeline.Coordinator)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	}
	if s.breakers != nil {
		states := make(map[string]string)
		for name, st := range s.breakers.States() {
			states[name] = st.String()
		}
		resp["breakers"] = states
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChainage(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	span := chainage.Parse(text)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":      text,
		"span":      span,
		"formatted": span.String(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, _ := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, coordinator(r).Snapshot())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeBadRequest(w, "Upload a PDF in the \"file\" form field.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "Upload a PDF in the \"file\" form field.")
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, "The uploaded file could not be read.")
		return
	}
	if len(pdf) == 0 {
		writeBadRequest(w, "The uploaded file is empty.")
		return
	}

	c := coordinator(r)
	if err := c.Upload(r.Context(), header.Filename, pdf); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	c := coordinator(r)
	if _, err := c.EnterReview(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

type updateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "interventionID"))
	if err != nil {
		writeBadRequest(w, "Intervention id must be a number.")
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Request body must be JSON with \"field\" and \"value\".")
		return
	}
	field, err := model.ParseField(req.Field)
	if err != nil {
		writeBadRequest(w, "Field must be \"intervention\" or \"chainage\".")
		return
	}

	c := coordinator(r)
	updated, err := c.UpdateField(id, field, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated": updated,
		"state":   c.Snapshot(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c := coordinator(r)
	// A client disconnect must not abort an estimate already sent; the
	// transport timeout still bounds the call.
	res, err := c.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeResult(w, c, res)
}

// handleResult returns the stored estimate so a reloaded dashboard can show
// it again without resubmitting.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	c := coordinator(r)
	res, err := c.Result()
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, c, res)
}

// writeResult sends the estimate as the backend returned it when the raw
// body is available.
func writeResult(w http.ResponseWriter, c *pipeline.Coordinator, res *roadsafety.EstimateResponse) {
	var result any = res
	if len(res.Raw) > 0 {
		result = res.Raw
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stage":  c.Stage().String(),
		"result": result,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := coordinator(r).Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := coordinator(r).Analytics()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type chatRequest struct {
	Question string `json:"question"`
	Scope    string `json:"scope"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Request body must be JSON with a \"question\".")
		return
	}
	answer, err := coordinator(r).Ask(r.Context(), req.Question, pipeline.Scope(strings.ToLower(req.Scope)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
