package chainage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Span
	}{
		{"point", "4+200", Span{StartM: 4200, EndM: 4200, LengthM: 0}},
		{"to range", "362+380 to 362+500", Span{StartM: 362380, EndM: 362500, LengthM: 120}},
		{"hyphen range splits on first hyphen", "4+200-4+350", Span{StartM: 4200, EndM: 4350, LengthM: 150}},
		{"empty", "", Span{}},
		{"whitespace only", "   ", Span{}},
		{"plain meters", "850", Span{StartM: 850, EndM: 850}},
		{"reversed range", "5+000 to 4+500", Span{StartM: 5000, EndM: 4500, LengthM: 500}},
		{"non numeric", "near bridge", Span{}},
		{"non numeric km part", "abc+200", Span{StartM: 200, EndM: 200}},
		{"non numeric m part", "4+abc", Span{StartM: 4000, EndM: 4000}},
		{"spaces around plus", "4 + 200", Span{StartM: 4200, EndM: 4200}},
		{"trailing text on token", "4+200m", Span{StartM: 4200, EndM: 4200}},
		{"to without right side", "4+200 to", Span{StartM: 4200, EndM: 0, LengthM: 4200}},
		{"second hyphen ignored", "1+000-2+000-3+000", Span{StartM: 1000, EndM: 2000, LengthM: 1000}},
		{"extra plus ignored by prefix parse", "4+200+5", Span{StartM: 4200, EndM: 4200}},
		{"leading minus degrades", "-300", Span{StartM: 0, EndM: 300, LengthM: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestParse_ToTakesPrecedenceOverHyphen(t *testing.T) {
	t.Parallel()

	got := Parse("4+200-A to 4+900")
	assert.Equal(t, 4200, got.StartM)
	assert.Equal(t, 4900, got.EndM)
	assert.Equal(t, 700, got.LengthM)
}

func TestParse_ToMustBeStandaloneWord(t *testing.T) {
	t.Parallel()

	// "to" inside another word does not count as a range separator.
	got := Parse("Toronto-5+000")
	assert.Equal(t, Span{StartM: 0, EndM: 5000, LengthM: 5000}, got)

	// Case-sensitive.
	got = Parse("1+000 TO 2+000")
	assert.Equal(t, Span{StartM: 1000, EndM: 1000}, got)
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"4+200", "362+380 to 362+500", "4+200-4+350", "", "junk"} {
		assert.Equal(t, Parse(in), Parse(in), in)
	}
}

func TestParse_LengthInvariant(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"9+999 to 0+001", "0+001 to 9+999", "12-7", "7-12", "3"} {
		s := Parse(in)
		assert.Equal(t, abs(s.EndM-s.StartM), s.LengthM, in)
		assert.GreaterOrEqual(t, s.StartM, 0, in)
		assert.GreaterOrEqual(t, s.EndM, 0, in)
	}
}

func TestParse_HugeNumberDoesNotOverflow(t *testing.T) {
	t.Parallel()

	s := Parse("99999999999999999999999")
	assert.GreaterOrEqual(t, s.StartM, 0)
}

func TestFormatMeters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "4+200", FormatMeters(4200))
	assert.Equal(t, "0+050", FormatMeters(50))
	assert.Equal(t, "362+380", FormatMeters(362380))
}

func TestSpan_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "4+200 (point)", Parse("4+200").String())
	assert.Equal(t, "362+380 – 362+500 (120 m)", Parse("362+380 to 362+500").String())
	assert.True(t, Parse("").IsZero())
}
