package roadsafety

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

func malformed(op, format string, args ...any) error {
	return eris.Wrapf(ErrMalformedResponse, "roadsafety: %s: "+format, append([]any{op}, args...)...)
}

// DecodeExtract validates an extraction response. The interventions array is
// required; the extractor reports its own failures in "error"/"step" with a
// 200 status, and those are folded into the returned error.
func DecodeExtract(body []byte) (*ExtractResponse, error) {
	var raw struct {
		Filename      string                   `json:"filename"`
		Count         int                      `json:"count"`
		Warning       string                   `json:"warning"`
		Error         string                   `json:"error"`
		Step          string                   `json:"step"`
		Interventions *[]ExtractedIntervention `json:"interventions"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed("extract", "decode: %v", err)
	}
	if raw.Interventions == nil {
		if raw.Error != "" {
			detail := raw.Error
			if raw.Step != "" {
				detail += " (step " + raw.Step + ")"
			}
			return nil, malformed("extract", "no interventions: %s", detail)
		}
		return nil, malformed("extract", "missing interventions array")
	}

	return &ExtractResponse{
		Filename:      raw.Filename,
		Count:         raw.Count,
		Warning:       raw.Warning,
		Interventions: *raw.Interventions,
	}, nil
}

// DecodeEstimate validates a batch estimation response and keeps the body
// verbatim in Raw.
func DecodeEstimate(body []byte) (*EstimateResponse, error) {
	var raw struct {
		Interventions *[]EstimatedIntervention `json:"interventions"`
		GrandTotal    *float64                 `json:"grand_total"`
		Demographics  *Demographics            `json:"demographics"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed("process-all", "decode: %v", err)
	}
	if raw.Interventions == nil {
		return nil, malformed("process-all", "missing interventions array")
	}

	resp := &EstimateResponse{
		Interventions: *raw.Interventions,
		Demographics:  raw.Demographics,
		Raw:           append(json.RawMessage(nil), body...),
	}
	if raw.GrandTotal != nil {
		resp.GrandTotal = *raw.GrandTotal
	}
	return resp, nil
}

// DecodeAsk validates a chatbot response.
func DecodeAsk(body []byte) (*AskResponse, error) {
	var raw struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed("ask", "decode: %v", err)
	}
	if raw.Answer == nil {
		return nil, malformed("ask", "missing answer")
	}
	return &AskResponse{Answer: strings.TrimSpace(*raw.Answer)}, nil
}
