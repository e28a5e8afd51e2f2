package aggregate

import (
	"evimap/internal/geo"
)

// 文档注释：上级关联索引
// 背景：县级记录只有上级省编号，点位只有省名称；按名称查省编号、按编号查县记录完成三级关联。
type ParentIndex struct {
	ProvinceIDByName map[string]string
	Districts        map[string]geo.Region
}

// NewParentIndex：由省、县列表构建索引；重名省份以后出现者为准
func NewParentIndex(provinces, districts []geo.Region) ParentIndex {
	idx := ParentIndex{
		ProvinceIDByName: make(map[string]string, len(provinces)),
		Districts:        make(map[string]geo.Region, len(districts)),
	}
	for _, p := range provinces {
		idx.ProvinceIDByName[p.Name] = p.ID
	}
	for _, d := range districts {
		idx.Districts[d.ID] = d
	}
	return idx
}

// provinceOf：点位所属省编号，优先使用上游已解析的编号
func (idx ParentIndex) provinceOf(p geo.POI) (string, bool) {
	if p.ProvinceID != "" {
		return p.ProvinceID, true
	}
	id, ok := idx.ProvinceIDByName[p.ProvinceName]
	return id, ok
}

// Stats 一次聚合的匹配统计，用于审计名称回退
type Stats struct {
	Considered  int
	Excluded    int
	IDMatched   int
	NameMatched int
	Unmatched   int
}

// Aggregate：见 AggregateWithStats
func Aggregate(regions []geo.Region, pois []geo.POI, filters FilterSet, level geo.Level, idx ParentIndex) map[string]float64 {
	totals, _ := AggregateWithStats(regions, pois, filters, level, idx)
	return totals
}

// 文档注释：按层级汇总勾选类型的证物数量
// 约束：
// - 每个传入区域都有结果，无匹配为显式 0；
// - 省：省名相等；县：县名相等且点位所属省编号等于县的上级编号；
// - 区：经上级县记录取得县名与省编号，区名、县名、省编号三者同时相等；
// - 点位带已解析编号时按编号匹配，否则按名称；任何查找缺失均视为不匹配，不返回错误。
func AggregateWithStats(regions []geo.Region, pois []geo.POI, filters FilterSet, level geo.Level, idx ParentIndex) (map[string]float64, Stats) {
	var st Stats
	totals := make(map[string]float64, len(regions))
	for _, r := range regions {
		totals[r.ID] = 0
	}
	byID := make(map[string]float64)
	byName := make(map[joinKey]float64)
	for _, p := range pois {
		st.Considered++
		key, ok := p.EffectiveType()
		if !ok || !filters.Active(key) || !p.HasAmount {
			st.Excluded++
			continue
		}
		if id := resolvedID(p, level); id != "" {
			byID[id] += p.Amount
			continue
		}
		if k, ok := nameKey(p, level, idx); ok {
			byName[k] += p.Amount
		}
	}
	usedName := make(map[joinKey]bool)
	usedID := make(map[string]bool)
	for _, r := range regions {
		sum := 0.0
		if v, ok := byID[r.ID]; ok {
			sum += v
			usedID[r.ID] = true
		}
		if k, ok := regionKey(r, level, idx); ok {
			if v, ok := byName[k]; ok {
				sum += v
				usedName[k] = true
			}
		}
		totals[r.ID] = sum
	}
	countMatches(pois, filters, level, idx, usedID, usedName, &st)
	return totals, st
}

// joinKey 三级名称关联键；省级只用 province，县级用 district+province，区级全部
type joinKey struct {
	subdistrict string
	district    string
	province    string
}

func resolvedID(p geo.POI, level geo.Level) string {
	switch level {
	case geo.LevelProvince:
		return p.ProvinceID
	case geo.LevelDistrict:
		return p.DistrictID
	case geo.LevelSubdistrict:
		return p.SubdistrictID
	}
	return ""
}

// nameKey：点位一侧的关联键
func nameKey(p geo.POI, level geo.Level, idx ParentIndex) (joinKey, bool) {
	switch level {
	case geo.LevelProvince:
		return joinKey{province: p.ProvinceName}, true
	case geo.LevelDistrict:
		prov, ok := idx.provinceOf(p)
		if !ok {
			return joinKey{}, false
		}
		return joinKey{district: p.DistrictName, province: prov}, true
	case geo.LevelSubdistrict:
		prov, ok := idx.provinceOf(p)
		if !ok {
			return joinKey{}, false
		}
		return joinKey{subdistrict: p.SubdistrictName, district: p.DistrictName, province: prov}, true
	}
	return joinKey{}, false
}

// regionKey：区域一侧的关联键；区级上级县缺失时返回 false
func regionKey(r geo.Region, level geo.Level, idx ParentIndex) (joinKey, bool) {
	switch level {
	case geo.LevelProvince:
		return joinKey{province: r.Name}, true
	case geo.LevelDistrict:
		if r.ParentID == "" {
			return joinKey{}, false
		}
		return joinKey{district: r.Name, province: r.ParentID}, true
	case geo.LevelSubdistrict:
		d, ok := idx.Districts[r.ParentID]
		if !ok || d.ParentID == "" {
			return joinKey{}, false
		}
		return joinKey{subdistrict: r.Name, district: d.Name, province: d.ParentID}, true
	}
	return joinKey{}, false
}

// countMatches：未落入任何区域的点位记为 Unmatched
func countMatches(pois []geo.POI, filters FilterSet, level geo.Level, idx ParentIndex, usedID map[string]bool, usedName map[joinKey]bool, st *Stats) {
	for _, p := range pois {
		key, ok := p.EffectiveType()
		if !ok || !filters.Active(key) || !p.HasAmount {
			continue
		}
		if id := resolvedID(p, level); id != "" {
			if usedID[id] {
				st.IDMatched++
			} else {
				st.Unmatched++
			}
			continue
		}
		k, ok := nameKey(p, level, idx)
		if ok && usedName[k] {
			st.NameMatched++
		} else {
			st.Unmatched++
		}
	}
}
