package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 文档注释：点击命中判定（经纬度 → 行政区）
// 约束：先按未投影包围盒过滤，再做多面含洞的点入面判定；多个命中时返回切片中第一个。
func RegionAt(regions []Region, lng, lat float64) (Region, bool) {
	pt := orb.Point{lng, lat}
	if !validVertex(pt) {
		return Region{}, false
	}
	for i := range regions {
		mp := regions[i].Geometry
		if len(mp) == 0 {
			continue
		}
		if !mp.Bound().Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(mp, pt) {
			return regions[i], true
		}
	}
	return Region{}, false
}
