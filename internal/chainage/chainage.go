// Package chainage converts free-text road chainage expressions into numeric
// spans in meters.
//
// Survey reports mix a compact "km+m" notation (4+200 is 4.2 km) with either a
// "to" range or a hyphen range. Parsing is deliberately permissive: anything
// that cannot be read degrades to zero instead of failing, so one malformed
// chainage never blocks a batch estimate.
package chainage

import (
	"fmt"
	"strings"
)

// Span is a normalized chainage range in meters.
type Span struct {
	StartM  int `json:"start_m"`
	EndM    int `json:"end_m"`
	LengthM int `json:"length_m"`
}

// IsZero reports whether s is the canonical zero span.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.StartM == s.EndM {
		return fmt.Sprintf("%s (point)", FormatMeters(s.StartM))
	}
	return fmt.Sprintf("%s – %s (%d m)", FormatMeters(s.StartM), FormatMeters(s.EndM), s.LengthM)
}

// Parse converts text into a Span. It never fails; empty or unreadable input
// yields the zero span.
//
// The word "to" (as its own token) takes precedence over a hyphen. Both split
// on their first occurrence only, and each side is normalized independently.
func Parse(text string) Span {
	text = strings.TrimSpace(text)
	if text == "" {
		return Span{}
	}

	var start, end int
	if a, b, ok := splitOnTo(text); ok {
		start = normalizeToken(a)
		end = normalizeToken(b)
	} else if a, b, ok := strings.Cut(text, "-"); ok {
		start = normalizeToken(a)
		end = normalizeToken(b)
	} else {
		start = normalizeToken(text)
		end = start
	}

	return Span{StartM: start, EndM: end, LengthM: abs(end - start)}
}

// splitOnTo splits text around the first whitespace-delimited "to" token.
func splitOnTo(text string) (string, string, bool) {
	fields := strings.Fields(text)
	for i, f := range fields {
		if f != "to" {
			continue
		}
		return strings.Join(fields[:i], " "), strings.Join(fields[i+1:], " "), true
	}
	return "", "", false
}

// normalizeToken reads "km+m" or a plain meter count.
func normalizeToken(token string) int {
	token = strings.TrimSpace(token)
	km, m, ok := strings.Cut(token, "+")
	if !ok {
		return leadingInt(token)
	}
	return leadingInt(km)*1000 + leadingInt(m)
}

// maxLeading bounds digit accumulation so oversized numbers cannot overflow.
const maxLeading = 1<<31/10 - 1

// leadingInt parses the run of decimal digits at the start of s after
// surrounding whitespace is trimmed. No digits yields 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' || n > maxLeading {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// FormatMeters renders meters in compact "km+mmm" notation.
func FormatMeters(m int) string {
	return fmt.Sprintf("%d+%03d", m/1000, m%1000)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
