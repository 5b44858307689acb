// Package roadsafety provides a client for the road-safety estimation backend:
// PDF intervention extraction, batch cost estimation and the chatbot.
package roadsafety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrMalformedResponse marks a response that arrived but is missing required
// fields or does not decode.
var ErrMalformedResponse = eris.New("roadsafety: malformed response")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("roadsafety: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("roadsafety: %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// Retryable reports whether the status indicates a transient server problem.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Client defines the backend operations.
type Client interface {
	// Extract uploads a PDF and returns the interventions found in it.
	Extract(ctx context.Context, filename string, pdf []byte) (*ExtractResponse, error)
	// ProcessAll submits a batch for quantity, cost and analytics computation.
	ProcessAll(ctx context.Context, batch []EstimateRequest) (*EstimateResponse, error)
	// Ask sends a chatbot question together with its full context.
	Ask(ctx context.Context, question string, askContext any) (*AskResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the backend address.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout bounds every request. A timed-out call surfaces as an ordinary
// transport error.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithChatLimiter throttles chatbot questions.
func WithChatLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.chatLimiter = l
	}
}

type httpClient struct {
	baseURL     string
	http        *http.Client
	chatLimiter *rate.Limiter
}

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// NewClient creates a backend client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Extract(ctx context.Context, filename string, pdf []byte) (*ExtractResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, eris.Wrap(err, "roadsafety: extract: create form file")
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, eris.Wrap(err, "roadsafety: extract: write form file")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "roadsafety: extract: close multipart")
	}

	body, err := c.post(ctx, "extract", "/extract/pdf", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return DecodeExtract(body)
}

func (c *httpClient) ProcessAll(ctx context.Context, batch []EstimateRequest) (*EstimateResponse, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, eris.Wrap(err, "roadsafety: process-all: marshal batch")
	}

	body, err := c.post(ctx, "process-all", "/api/process-all", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return DecodeEstimate(body)
}

func (c *httpClient) Ask(ctx context.Context, question string, askContext any) (*AskResponse, error) {
	if c.chatLimiter != nil {
		if err := c.chatLimiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "roadsafety: ask: rate limit wait")
		}
	}

	payload, err := json.Marshal(AskRequest{Question: question, Context: askContext})
	if err != nil {
		return nil, eris.Wrap(err, "roadsafety: ask: marshal request")
	}

	body, err := c.post(ctx, "ask", "/chatbot/ask", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return DecodeAsk(body)
}

func (c *httpClient) post(ctx context.Context, op, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrapf(err, "roadsafety: %s: create request", op)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "roadsafety: %s: request failed", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "roadsafety: %s: read response body", op)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}
	return data, nil
}

// errorDetail pulls a FastAPI-style "detail" message out of an error body,
// falling back to the raw text.
func errorDetail(body []byte) string {
	var v struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &v); err == nil && v.Detail != nil {
		if s, ok := v.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(v.Detail)
		return string(b)
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
