package cluster

import (
	"math"
	"sort"
	"strconv"

	"evimap/internal/aggregate"
	"evimap/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// DisableAtZoom 达到此缩放级别后不再聚合，每个点位单独成组
const DisableAtZoom maptile.Zoom = 12

// Group 一个瓦片格内的点位
type Group struct {
	Key      string    `json:"key"`
	Province string    `json:"province"`
	Center   orb.Point `json:"center"`
	Members  []geo.POI `json:"-"`
}

// 文档注释：按省 + Web 墨卡托瓦片分组
// 背景：前端以省为单位建立聚合层，同一瓦片内的点位合并为一个图标；此分组器代替外部聚合库为汇总器提供成员。
// 约束：仅保留勾选类型且坐标有效的点位；zoom ≥ DisableAtZoom 时不合并；输出按 Key 排序，结果稳定。
// Center 为成员坐标均值 [lng, lat]。
func GroupByTile(pois []geo.POI, filters aggregate.FilterSet, zoom maptile.Zoom) []Group {
	groups := map[string]*Group{}
	for i, p := range pois {
		key, ok := p.EffectiveType()
		if !ok || !filters.Active(key) {
			continue
		}
		if !p.HasCoords || p.Lat < -85 || p.Lat > 85 {
			continue
		}
		pt := orb.Point{p.Lng, p.Lat}
		var gk string
		if zoom >= DisableAtZoom {
			gk = p.ProvinceName + "|" + strconv.Itoa(i)
		} else {
			t := maptile.At(pt, zoom)
			gk = p.ProvinceName + "|" + strconv.Itoa(int(t.Z)) + "/" + strconv.FormatUint(uint64(t.X), 10) + "/" + strconv.FormatUint(uint64(t.Y), 10)
		}
		g, ok := groups[gk]
		if !ok {
			g = &Group{Key: gk, Province: p.ProvinceName}
			groups[gk] = g
		}
		g.Members = append(g.Members, p)
	}
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		var sx, sy float64
		for _, m := range g.Members {
			sx += m.Lng
			sy += m.Lat
		}
		n := float64(len(g.Members))
		g.Center = orb.Point{sx / n, sy / n}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// 文档注释：热力图权重
// 约束：有数量时为 min(log10(amount+1)/3, 1)·0.8，缺失数量时为 0.1。
func HeatIntensity(p geo.POI) float64 {
	if !p.HasAmount {
		return 0.1
	}
	return math.Min(math.Log10(p.Amount+1)/3, 1) * 0.8
}
