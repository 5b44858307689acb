package roadsafety

import "encoding/json"

// ExtractedIntervention is one row returned by the PDF extractor. A JSON null
// in either field decodes to the empty string.
type ExtractedIntervention struct {
	Intervention string `json:"intervention"`
	Chainage     string `json:"chainage"`
}

// ExtractResponse is the validated extraction result.
type ExtractResponse struct {
	Filename      string                  `json:"filename,omitempty"`
	Count         int                     `json:"count,omitempty"`
	Warning       string                  `json:"warning,omitempty"`
	Interventions []ExtractedIntervention `json:"interventions"`
}

// ChainageM is the numeric chainage span attached to each estimate request.
type ChainageM struct {
	StartM  int `json:"start_m"`
	EndM    int `json:"end_m"`
	LengthM int `json:"length_m"`
}

// EstimateRequest is one element of the batch estimation payload.
type EstimateRequest struct {
	ID           int       `json:"id"`
	Intervention string    `json:"intervention"`
	Chainage     string    `json:"chainage"`
	ChainageM    ChainageM `json:"chainage_m"`
}

// MaterialLine is one bill-of-quantities row.
type MaterialLine struct {
	Material string   `json:"material"`
	Qty      float64  `json:"qty"`
	Unit     string   `json:"unit,omitempty"`
	Rate     *float64 `json:"rate"`
	Amount   float64  `json:"amount"`
	Type     string   `json:"type,omitempty"`
}

// Cost is the priced breakdown for one intervention.
type Cost struct {
	TotalCost float64        `json:"total_cost"`
	Items     []MaterialLine `json:"items"`
}

// EstimatedIntervention is one priced intervention in the batch result.
type EstimatedIntervention struct {
	Intervention string `json:"intervention"`
	Chainage     string `json:"chainage"`
	ClauseUsed   string `json:"clause_used"`
	Cost         *Cost  `json:"cost"`
}

// TotalCost returns the intervention cost, 0 when the backend sent none.
func (e EstimatedIntervention) TotalCost() float64 {
	if e.Cost == nil {
		return 0
	}
	return e.Cost.TotalCost
}

// KPIs are the headline analytics figures.
type KPIs struct {
	TotalInterventions int     `json:"total_interventions"`
	UniqueClauses      int     `json:"unique_clauses"`
	GrandTotal         float64 `json:"grand_total"`
}

// ClauseTotal aggregates cost for one governing clause.
type ClauseTotal struct {
	Count     int     `json:"count,omitempty"`
	TotalCost float64 `json:"total_cost"`
}

// Demographics is the analytics block of the batch result.
type Demographics struct {
	KPIs      KPIs                   `json:"kpis"`
	ByClause  map[string]ClauseTotal `json:"by_clause"`
	Materials map[string]float64     `json:"materials"`
}

// EstimateResponse is the validated batch estimation result. Raw holds the
// response body exactly as received.
type EstimateResponse struct {
	Interventions []EstimatedIntervention `json:"interventions"`
	GrandTotal    float64                 `json:"grand_total"`
	Demographics  *Demographics           `json:"demographics,omitempty"`
	Raw           json.RawMessage         `json:"-"`
}

// AskRequest is the chatbot payload. Context is sent in full on every call.
type AskRequest struct {
	Question string `json:"question"`
	Context  any    `json:"context"`
}

// AskResponse is the chatbot reply.
type AskResponse struct {
	Answer string `json:"answer"`
}
