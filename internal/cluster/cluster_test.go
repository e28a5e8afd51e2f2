package cluster

import (
	"math"
	"testing"

	"evimap/internal/aggregate"
	"evimap/internal/choropleth"
	"evimap/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		n    int
		tier RadiusTier
		d    int
	}{
		{0, TierSmall, 30},
		{9, TierSmall, 30},
		{10, TierMedium, 40},
		{99, TierMedium, 40},
		{100, TierLarge, 50},
		{5000, TierLarge, 50},
	}
	for _, c := range cases {
		got := TierFor(c.n)
		if got != c.tier || got.Diameter() != c.d {
			t.Errorf("TierFor(%d) = %s/%d, want %s/%d", c.n, got, got.Diameter(), c.tier, c.d)
		}
	}
}

func members(n int, amount float64) []geo.POI {
	out := make([]geo.POI, n)
	for i := range out {
		out[i] = geo.POI{Category: geo.CategoryFirearm, Amount: amount, HasAmount: true, Lat: 13.7, Lng: 100.5, HasCoords: true}
	}
	return out
}

func TestSummarizeContrast(t *testing.T) {
	c := choropleth.Default()

	high := Summarize(members(250, 1_000_000), c)
	if high.Count != 250 || high.TotalAmount != 250_000_000 {
		t.Fatalf("high summary = %+v", high)
	}
	if high.RadiusTier != TierLarge || high.Diameter != 50 {
		t.Errorf("high tier = %s/%d", high.RadiusTier, high.Diameter)
	}
	if high.LabelColor != "#FFFFFF" {
		t.Errorf("high label = %s on %s, want #FFFFFF", high.LabelColor, high.Fill)
	}

	low := Summarize(members(3, 10), c)
	if low.TotalAmount != 30 || low.RadiusTier != TierSmall {
		t.Fatalf("low summary = %+v", low)
	}
	if low.LabelColor != "#333333" {
		t.Errorf("low label = %s on %s, want #333333", low.LabelColor, low.Fill)
	}
	if low.FontSize != 30/2.8 {
		t.Errorf("font size = %v", low.FontSize)
	}
}

func TestSummarizeSkipsMissingAmount(t *testing.T) {
	m := members(2, 40)
	m = append(m, geo.POI{Category: geo.CategoryFirearm, Amount: 999})
	s := Summarize(m, choropleth.Default())
	if s.Count != 3 {
		t.Errorf("count = %d, want 3", s.Count)
	}
	if s.TotalAmount != 80 {
		t.Errorf("total = %v, want 80", s.TotalAmount)
	}
}

func TestGroupByTile(t *testing.T) {
	pois := []geo.POI{
		{Category: geo.CategoryFirearm, Lat: 13.75, Lng: 100.50, HasCoords: true, ProvinceName: "กรุงเทพมหานคร", Amount: 1, HasAmount: true},
		{Category: geo.CategoryFirearm, Lat: 13.76, Lng: 100.51, HasCoords: true, ProvinceName: "กรุงเทพมหานคร", Amount: 2, HasAmount: true},
		{Category: geo.CategoryFirearm, Lat: 13.76, Lng: 100.51, HasCoords: true, ProvinceName: "นนทบุรี", Amount: 3, HasAmount: true},
		{Category: geo.CategoryNarcotic, Subtype: "meth", Lat: 18.79, Lng: 98.98, HasCoords: true, ProvinceName: "เชียงใหม่", Amount: 4, HasAmount: true},
		{Category: geo.CategoryNarcotic, Lat: 18.79, Lng: 98.98, HasCoords: true, ProvinceName: "เชียงใหม่"},
	}

	groups := GroupByTile(pois, aggregate.FilterSet{"firearm": true}, 6)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2 (one per province)", len(groups))
	}
	total := 0
	for _, g := range groups {
		total += len(g.Members)
		if g.Province == "กรุงเทพมหานคร" && len(g.Members) != 2 {
			t.Errorf("bangkok members = %d, want 2", len(g.Members))
		}
	}
	if total != 3 {
		t.Errorf("members = %d, want 3", total)
	}

	all := aggregate.FilterSet{"firearm": true, "meth": true}
	if n := len(GroupByTile(pois, all, DisableAtZoom)); n != 4 {
		t.Errorf("groups at zoom %d = %d, want 4", DisableAtZoom, n)
	}
}

func TestGroupByTileSkipsUnlocated(t *testing.T) {
	located := members(2, 1)
	unlocated := geo.POI{Category: geo.CategoryFirearm, Amount: 1, HasAmount: true, ProvinceName: "x"}
	pois := append(located, unlocated)
	for _, zoom := range []maptile.Zoom{6, DisableAtZoom} {
		groups := GroupByTile(pois, aggregate.FilterSet{"firearm": true}, zoom)
		n := 0
		for _, g := range groups {
			n += len(g.Members)
			if g.Center == (orb.Point{}) {
				t.Errorf("zoom %d: group %s centered at origin", zoom, g.Key)
			}
		}
		if n != 2 {
			t.Errorf("zoom %d: members = %d, want 2", zoom, n)
		}
	}
}

func TestGroupByTileStableOrder(t *testing.T) {
	pois := members(5, 1)
	pois[2].Lat, pois[2].Lng = 7.0, 100.4
	a := GroupByTile(pois, aggregate.FilterSet{"firearm": true}, 8)
	b := GroupByTile(pois, aggregate.FilterSet{"firearm": true}, 8)
	if len(a) != len(b) {
		t.Fatalf("lengths differ")
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			t.Errorf("order differs at %d: %s vs %s", i, a[i].Key, b[i].Key)
		}
	}
}

func TestHeatIntensity(t *testing.T) {
	cases := []struct {
		p    geo.POI
		want float64
	}{
		{geo.POI{}, 0.1},
		{geo.POI{HasAmount: true, Amount: 0}, 0},
		{geo.POI{HasAmount: true, Amount: 9}, 0.8 / 3},
		{geo.POI{HasAmount: true, Amount: 999}, 0.8},
		{geo.POI{HasAmount: true, Amount: 1e9}, 0.8},
	}
	for _, c := range cases {
		if got := HeatIntensity(c.p); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("HeatIntensity(%+v) = %v, want %v", c.p, got, c.want)
		}
	}
}
