package model

import (
	"encoding/json"
	"time"
)

// Report is a finished cost estimate kept in the archive. Result holds the
// estimation response body exactly as the backend returned it.
type Report struct {
	ID                 string          `json:"id"`
	RunID              string          `json:"run_id"`
	Filename           string          `json:"filename"`
	TotalInterventions int             `json:"total_interventions"`
	GrandTotal         float64         `json:"grand_total"`
	Result             json.RawMessage `json:"result"`
	CreatedAt          time.Time       `json:"created_at"`
}
