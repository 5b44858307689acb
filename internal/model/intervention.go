package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Intervention is one reviewable row of an audit report. ID is the 1-based
// extraction ordinal and is never reused within a run.
type Intervention struct {
	ID           int    `json:"id"`
	Intervention string `json:"intervention"`
	Chainage     string `json:"chainage"`
}

// Field names an editable Intervention field.
type Field string

const (
	FieldIntervention Field = "intervention"
	FieldChainage     Field = "chainage"
)

// ParseField validates a field name coming from a user edit.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldIntervention, FieldChainage:
		return f, nil
	default:
		return "", eris.Errorf("model: unknown intervention field %q", s)
	}
}

// Get returns the value of field f.
func (i Intervention) Get(f Field) string {
	switch f {
	case FieldIntervention:
		return i.Intervention
	case FieldChainage:
		return i.Chainage
	default:
		return ""
	}
}

// With returns a copy of i with field f set to value.
func (i Intervention) With(f Field, value string) Intervention {
	switch f {
	case FieldIntervention:
		i.Intervention = value
	case FieldChainage:
		i.Chainage = value
	}
	return i
}

// CloneInterventions returns an independent copy of list.
func CloneInterventions(list []Intervention) []Intervention {
	if list == nil {
		return nil
	}
	out := make([]Intervention, len(list))
	copy(out, list)
	return out
}
