// Package report derives the read-only summary and analytics views from a
// batch estimate and renders them as text.
package report

import (
	"sort"

	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

// Line is one intervention in the summary view.
type Line struct {
	Number       int                       `json:"number"`
	Intervention string                    `json:"intervention"`
	Chainage     string                    `json:"chainage"`
	Clause       string                    `json:"clause"`
	Cost         float64                   `json:"cost"`
	Percentage   float64                   `json:"percentage"`
	Items        []roadsafety.MaterialLine `json:"items"`
}

// Summary is the cost summary view of one estimate.
type Summary struct {
	TotalInterventions int     `json:"total_interventions"`
	GrandTotal         float64 `json:"grand_total"`
	AvgCost            float64 `json:"avg_cost"`
	Lines              []Line  `json:"lines"`
}

// Share is one slice of a cost breakdown.
type Share struct {
	Name       string  `json:"name"`
	Count      int     `json:"count,omitempty"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Analytics is the dashboard view of the estimate's demographics block.
type Analytics struct {
	KPIs      roadsafety.KPIs `json:"kpis"`
	Clauses   []Share         `json:"clauses"`
	Materials []Share         `json:"materials"`
}

// Percentage returns part as a percentage of total, or 0 when total <= 0.
func Percentage(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// Average returns total/n, or 0 when n is 0.
func Average(total float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return total / float64(n)
}

// BuildSummary derives the summary view. res must carry an interventions list.
func BuildSummary(res *roadsafety.EstimateResponse) *Summary {
	s := &Summary{
		TotalInterventions: len(res.Interventions),
		GrandTotal:         res.GrandTotal,
		Lines:              make([]Line, 0, len(res.Interventions)),
	}
	s.AvgCost = Average(s.GrandTotal, s.TotalInterventions)

	for i, item := range res.Interventions {
		line := Line{
			Number:       i + 1,
			Intervention: item.Intervention,
			Chainage:     item.Chainage,
			Clause:       item.ClauseUsed,
			Cost:         item.TotalCost(),
		}
		if item.Cost != nil {
			line.Items = item.Cost.Items
		}
		line.Percentage = Percentage(line.Cost, s.GrandTotal)
		s.Lines = append(s.Lines, line)
	}
	return s
}

// BuildAnalytics derives the analytics view, largest shares first.
func BuildAnalytics(d *roadsafety.Demographics) *Analytics {
	a := &Analytics{KPIs: d.KPIs}

	var clauseTotal float64
	for _, c := range d.ByClause {
		clauseTotal += c.TotalCost
	}
	for name, c := range d.ByClause {
		a.Clauses = append(a.Clauses, Share{
			Name:       name,
			Count:      c.Count,
			Amount:     c.TotalCost,
			Percentage: Percentage(c.TotalCost, clauseTotal),
		})
	}

	var materialTotal float64
	for _, v := range d.Materials {
		materialTotal += v
	}
	for name, v := range d.Materials {
		a.Materials = append(a.Materials, Share{
			Name:       name,
			Amount:     v,
			Percentage: Percentage(v, materialTotal),
		})
	}

	sortShares(a.Clauses)
	sortShares(a.Materials)
	return a
}

func sortShares(s []Share) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Amount != s[j].Amount {
			return s[i].Amount > s[j].Amount
		}
		return s[i].Name < s[j].Name
	})
}
