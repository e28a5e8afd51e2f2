package choropleth

import (
	"errors"
	"math"
	"testing"
)

func TestClassifyBreakpoints(t *testing.T) {
	c := Default()
	p := DefaultPalette()
	cases := []struct {
		amount float64
		index  int
	}{
		{0, 0},
		{99.99, 0},
		{100, 1},
		{999, 1},
		{1_000, 2},
		{50_000, 3},
		{999_999, 4},
		{1_000_000, 5},
		{10_000_000, 6},
		{99_999_999, 6},
		{100_000_000, 7},
		{1e12, 7},
	}
	for _, tc := range cases {
		b := c.Classify(tc.amount)
		if b.Index != tc.index || b.Color != p.Colors[tc.index] {
			t.Errorf("Classify(%v) = %+v, want index %d", tc.amount, b, tc.index)
		}
	}
}

func TestClassifyNoData(t *testing.T) {
	c := Default()
	for _, v := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		b := c.Classify(v)
		if b.Index != NoDataIndex || b.Color != DefaultPalette().NoData {
			t.Errorf("Classify(%v) = %+v, want no-data", v, b)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	c := Default()
	prev := -1
	for a := 0.0; a < 2e8; a = a*1.7 + 1 {
		i := c.Classify(a).Index
		if i < prev {
			t.Fatalf("index decreased at %v: %d < %d", a, i, prev)
		}
		prev = i
	}
}

func TestIsLight(t *testing.T) {
	cases := []struct {
		hex   string
		light bool
	}{
		{"#FFFFFF", true},
		{"#e6f7ff", true},
		{"#fff2b2", true},
		{"#b30000", false},
		{"#000000", false},
		{"#333333", false},
		{"not-a-color", true},
	}
	for _, c := range cases {
		if got := IsLight(c.hex); got != c.light {
			t.Errorf("IsLight(%s) = %v, want %v", c.hex, got, c.light)
		}
	}
}

func TestLabelColorContrast(t *testing.T) {
	c := Default()
	p := c.Palette()
	for i, bg := range p.Colors {
		want := p.DarkText
		if !IsLight(bg) {
			want = p.LightText
		}
		if got := c.LabelColor(bg); got != want {
			t.Errorf("bucket %d (%s): label %s, want %s", i, bg, got, want)
		}
	}
	if got := c.LabelColor(p.Colors[len(p.Colors)-1]); got != "#FFFFFF" {
		t.Errorf("top bucket label = %s, want #FFFFFF", got)
	}
}

func TestPaletteValidate(t *testing.T) {
	if err := DefaultPalette().Validate(); err != nil {
		t.Fatalf("default palette invalid: %v", err)
	}
	bad := []Palette{
		{Breaks: []float64{1, 2}, Colors: []string{"#000000", "#111111"}, NoData: "#000000", DarkText: "#000000", LightText: "#ffffff"},
		{Breaks: []float64{2, 1}, Colors: []string{"#000000", "#111111", "#222222"}, NoData: "#000000", DarkText: "#000000", LightText: "#ffffff"},
		{Breaks: []float64{1}, Colors: []string{"#000000", "red"}, NoData: "#000000", DarkText: "#000000", LightText: "#ffffff"},
	}
	for i, p := range bad {
		err := p.Validate()
		if !errors.Is(err, errPalette) {
			t.Errorf("case %d: err = %v", i, err)
		}
		if _, err := New(p); err == nil {
			t.Errorf("case %d: New accepted invalid palette", i)
		}
	}
}
