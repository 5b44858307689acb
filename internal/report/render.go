package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Colors and styles shared by the text renderers.
var (
	ColorAccent = lipgloss.Color("#00AFAF")
	ColorMuted  = lipgloss.Color("#808080")
	ColorGood   = lipgloss.Color("#5FAF5F")
	ColorWarn   = lipgloss.Color("#D7AF00")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	HeadingStyle = lipgloss.NewStyle().
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	MoneyStyle = lipgloss.NewStyle().
			Foreground(ColorGood)

	KPIStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1)
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Money formats an amount in rupees with locale digit grouping.
func Money(v float64) string {
	return printer.Sprintf("₹ %.2f", v)
}

const barWidth = 30

// Bar draws a proportional bar for a percentage in [0, 100].
func Bar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	n := int(pct / 100 * barWidth)
	return MoneyStyle.Render(strings.Repeat("█", n)) + MutedStyle.Render(strings.Repeat("░", barWidth-n))
}

// RenderSummary writes the cost summary view.
func RenderSummary(w io.Writer, s *Summary) error {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Cost Summary Report") + "\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		KPIStyle.Render(fmt.Sprintf("Total Interventions\n%d", s.TotalInterventions)),
		KPIStyle.Render("Total Cost\n"+Money(s.GrandTotal)),
		KPIStyle.Render("Average Cost\n"+Money(s.AvgCost)),
	))
	b.WriteString("\n\n")

	for _, l := range s.Lines {
		b.WriteString(HeadingStyle.Render(fmt.Sprintf("Intervention %d", l.Number)))
		b.WriteString("  " + MoneyStyle.Render(Money(l.Cost)) + "\n")
		b.WriteString(l.Intervention + "\n")
		b.WriteString(MutedStyle.Render(fmt.Sprintf("Clause: %s   Chainage: %s", orDash(l.Clause), orDash(l.Chainage))) + "\n")
		b.WriteString(fmt.Sprintf("%s %5.1f%%\n", Bar(l.Percentage), l.Percentage))

		if len(l.Items) > 0 {
			b.WriteString(fmt.Sprintf("  %-40s %10s %12s %16s\n", "Material", "Qty", "Rate", "Amount"))
			for _, it := range l.Items {
				rate := "-"
				if it.Rate != nil {
					rate = printer.Sprintf("%.2f", *it.Rate)
				}
				b.WriteString(fmt.Sprintf("  %-40s %10s %12s %16s\n",
					truncate(it.Material, 40), printer.Sprintf("%.2f", it.Qty), rate, Money(it.Amount)))
			}
			b.WriteString(fmt.Sprintf("  %-64s %16s\n", "Subtotal", Money(l.Cost)))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderAnalytics writes the analytics view.
func RenderAnalytics(w io.Writer, a *Analytics) error {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Cost Analytics") + "\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		KPIStyle.Render(fmt.Sprintf("Total Interventions\n%d", a.KPIs.TotalInterventions)),
		KPIStyle.Render(fmt.Sprintf("Clauses Used\n%d", a.KPIs.UniqueClauses)),
		KPIStyle.Render("Total Cost\n"+Money(a.KPIs.GrandTotal)),
	))
	b.WriteString("\n\n")

	writeShares(&b, "Cost by clause", a.Clauses)
	writeShares(&b, "Cost by material", a.Materials)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeShares(b *strings.Builder, title string, shares []Share) {
	b.WriteString(HeadingStyle.Render(title) + "\n")
	if len(shares) == 0 {
		b.WriteString(MutedStyle.Render("  none") + "\n\n")
		return
	}
	for _, s := range shares {
		b.WriteString(fmt.Sprintf("  %-36s %s %5.1f%%  %s\n", truncate(s.Name, 36), Bar(s.Percentage), s.Percentage, Money(s.Amount)))
	}
	b.WriteString("\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
