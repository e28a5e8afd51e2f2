package aggregate

import (
	"testing"

	"evimap/internal/geo"
)

var (
	provinces = []geo.Region{
		{ID: "10", Name: "กรุงเทพมหานคร", Level: geo.LevelProvince},
		{ID: "50", Name: "เชียงใหม่", Level: geo.LevelProvince},
		{ID: "90", Name: "สงขลา", Level: geo.LevelProvince},
	}
	districts = []geo.Region{
		{ID: "5001", Name: "เมือง", Level: geo.LevelDistrict, ParentID: "50"},
		{ID: "9001", Name: "เมือง", Level: geo.LevelDistrict, ParentID: "90"},
		{ID: "9011", Name: "หาดใหญ่", Level: geo.LevelDistrict, ParentID: "90"},
		{ID: "orphan", Name: "เมือง", Level: geo.LevelDistrict},
	}
	subdistricts = []geo.Region{
		{ID: "500101", Name: "ศรีภูมิ", Level: geo.LevelSubdistrict, ParentID: "5001"},
		{ID: "900101", Name: "บ่อยาง", Level: geo.LevelSubdistrict, ParentID: "9001"},
		{ID: "901101", Name: "หาดใหญ่", Level: geo.LevelSubdistrict, ParentID: "9011"},
		{ID: "lost", Name: "ศรีภูมิ", Level: geo.LevelSubdistrict, ParentID: "nope"},
	}
)

func gun(amount float64, prov, dist, sub string) geo.POI {
	return geo.POI{Category: geo.CategoryFirearm, Amount: amount, HasAmount: true, ProvinceName: prov, DistrictName: dist, SubdistrictName: sub}
}

func drug(subtype string, amount float64, prov, dist, sub string) geo.POI {
	return geo.POI{Category: geo.CategoryNarcotic, Subtype: subtype, Amount: amount, HasAmount: true, ProvinceName: prov, DistrictName: dist, SubdistrictName: sub}
}

func TestAggregateCompleteness(t *testing.T) {
	idx := NewParentIndex(provinces, districts)
	for _, level := range []geo.Level{geo.LevelProvince, geo.LevelDistrict, geo.LevelSubdistrict} {
		var regions []geo.Region
		switch level {
		case geo.LevelProvince:
			regions = provinces
		case geo.LevelDistrict:
			regions = districts
		default:
			regions = subdistricts
		}
		got := Aggregate(regions, nil, FilterSet{"firearm": true}, level, idx)
		if len(got) != len(regions) {
			t.Errorf("%s: %d entries for %d regions", level, len(got), len(regions))
		}
		for _, r := range regions {
			if v, ok := got[r.ID]; !ok || v != 0 {
				t.Errorf("%s/%s = %v %v, want explicit 0", level, r.ID, v, ok)
			}
		}
	}
}

func TestAggregateProvince(t *testing.T) {
	pois := []geo.POI{
		gun(2, "เชียงใหม่", "เมือง", ""),
		gun(3, "เชียงใหม่", "เมือง", ""),
		drug("meth", 1000, "เชียงใหม่", "เมือง", ""),
		drug("heroin", 7, "สงขลา", "หาดใหญ่", ""),
		drug("", 500, "สงขลา", "หาดใหญ่", ""),
		{Category: geo.CategoryFirearm, ProvinceName: "สงขลา", Amount: 9},
		gun(4, "ไม่มีจังหวัดนี้", "", ""),
	}
	idx := NewParentIndex(provinces, districts)
	got, st := AggregateWithStats(provinces, pois, FilterSet{"firearm": true, "heroin": true}, geo.LevelProvince, idx)
	want := map[string]float64{"10": 0, "50": 5, "90": 7}
	for id, v := range want {
		if got[id] != v {
			t.Errorf("%s = %v, want %v", id, got[id], v)
		}
	}
	if st.Considered != len(pois) || st.Excluded != 3 || st.NameMatched != 3 || st.Unmatched != 1 {
		t.Errorf("stats = %+v", st)
	}
}

// Two provinces both have a district named เมือง; each must only receive its own finds.
func TestAggregateDuplicateDistrictNames(t *testing.T) {
	pois := []geo.POI{
		gun(10, "เชียงใหม่", "เมือง", ""),
		gun(1, "สงขลา", "เมือง", ""),
		gun(1, "สงขลา", "เมือง", ""),
		gun(100, "สงขลา", "หาดใหญ่", ""),
	}
	idx := NewParentIndex(provinces, districts)
	got := Aggregate(districts, pois, FilterSet{"firearm": true}, geo.LevelDistrict, idx)
	want := map[string]float64{"5001": 10, "9001": 2, "9011": 100, "orphan": 0}
	for id, v := range want {
		if got[id] != v {
			t.Errorf("%s = %v, want %v", id, got[id], v)
		}
	}
}

func TestAggregateSubdistrictThreeLevelJoin(t *testing.T) {
	pois := []geo.POI{
		gun(1, "เชียงใหม่", "เมือง", "ศรีภูมิ"),
		gun(2, "สงขลา", "เมือง", "ศรีภูมิ"),
		gun(4, "สงขลา", "เมือง", "บ่อยาง"),
		gun(8, "สงขลา", "หาดใหญ่", "หาดใหญ่"),
		gun(16, "สงขลา", "หาดใหญ่", "บ่อยาง"),
	}
	idx := NewParentIndex(provinces, districts)
	got := Aggregate(subdistricts, pois, FilterSet{"firearm": true}, geo.LevelSubdistrict, idx)
	want := map[string]float64{"500101": 1, "900101": 4, "901101": 8, "lost": 0}
	for id, v := range want {
		if got[id] != v {
			t.Errorf("%s = %v, want %v", id, got[id], v)
		}
	}
}

func TestAggregateResolvedIDsFirst(t *testing.T) {
	p := gun(6, "ชื่อผิด", "ชื่อผิด", "")
	p.DistrictID = "9011"
	q := gun(1, "สงขลา", "หาดใหญ่", "")
	idx := NewParentIndex(provinces, districts)
	got, st := AggregateWithStats(districts, []geo.POI{p, q}, FilterSet{"firearm": true}, geo.LevelDistrict, idx)
	if got["9011"] != 7 {
		t.Errorf("9011 = %v, want 7", got["9011"])
	}
	if st.IDMatched != 1 || st.NameMatched != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestAggregateFilterToggle(t *testing.T) {
	pois := []geo.POI{gun(2, "เชียงใหม่", "", ""), drug("meth", 30, "เชียงใหม่", "", "")}
	idx := NewParentIndex(provinces, districts)
	cases := []struct {
		fs   FilterSet
		want float64
	}{
		{FilterSet{}, 0},
		{FilterSet{"firearm": true}, 2},
		{FilterSet{"meth": true}, 30},
		{FilterSet{"firearm": true, "meth": true}, 32},
		{FilterSet{"firearm": false, "meth": true}, 30},
	}
	for _, c := range cases {
		if got := Aggregate(provinces, pois, c.fs, geo.LevelProvince, idx)["50"]; got != c.want {
			t.Errorf("filters %v: got %v, want %v", c.fs, got, c.want)
		}
	}
}

func TestFilterSet(t *testing.T) {
	fs := ParseFilters(" meth, firearm ,,heroin")
	if !fs.Active("meth") || !fs.Active("firearm") || fs.Active("") || fs.Active("cannabis") {
		t.Errorf("parsed = %v", fs)
	}
	if got := fs.Key(); got != "firearm,heroin,meth" {
		t.Errorf("key = %q", got)
	}
	if got := (FilterSet{"a": false}).Key(); got != "" {
		t.Errorf("inactive key = %q", got)
	}
}
