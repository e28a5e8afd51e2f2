package viewport

import (
	"math"

	"evimap/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// 瓦片地图（中心点 + 缩放级别）参数
const (
	MapDefaultZoom = 6
	MapMinZoom     = 5
	MapMaxZoom     = 13
	MapFitPadding  = 50
	tileSize       = 256
)

// MapDefaultCenter 默认中心 [lng, lat]（曼谷）
var MapDefaultCenter = orb.Point{100.5018, 13.7563}

// MapView 瓦片地图视图；Center 为 [lng, lat]
type MapView struct {
	Center orb.Point `json:"center"`
	Zoom   int       `json:"zoom"`
}

// 文档注释：瓦片地图适配选区
// 约束：最深非空层级的经纬度包围盒四周留 MapFitPadding 像素，取能完整容纳的最大整数级别并钳制到 [MapMinZoom, MapMaxZoom]；
// 空选区返回默认中心与 MapDefaultZoom；绘制区域尺寸未知时取 MapMaxZoom。
func FitMap(sel Selection, surface Surface) MapView {
	_, regions, ok := sel.Deepest()
	if !ok {
		return MapView{Center: MapDefaultCenter, Zoom: MapDefaultZoom}
	}
	b := geo.ComputeBounds(regions)
	ll := orb.Bound{Min: orb.Point{b.Min[0], -b.Max[1]}, Max: orb.Point{b.Max[0], -b.Min[1]}}
	z := zoomToFit(ll, surface.W-2*MapFitPadding, surface.H-2*MapFitPadding)
	return MapView{Center: ll.Center(), Zoom: clampMapZoom(z)}
}

// MapView：当前矢量视框对应的瓦片地图视图，用于两种绘制方式之间同步
func (s State) MapView() MapView {
	vb := s.ViewBox()
	ll := orb.Bound{
		Min: orb.Point{vb.MinX, -(vb.MinY + vb.Height)},
		Max: orb.Point{vb.MinX + vb.Width, -vb.MinY},
	}
	return MapView{Center: ll.Center(), Zoom: clampMapZoom(zoomToFit(ll, s.Surface.W, s.Surface.H))}
}

// zoomToFit：Web 墨卡托下能容纳 ll 的最大整数级别
func zoomToFit(ll orb.Bound, w, h float64) int {
	if !(w > 0) || !(h > 0) {
		return MapMaxZoom
	}
	lo := maptile.Fraction(clampLat(ll.Min), 0)
	hi := maptile.Fraction(clampLat(ll.Max), 0)
	fx := math.Abs(hi[0] - lo[0])
	fy := math.Abs(hi[1] - lo[1])
	z := math.Inf(1)
	if fx > 0 {
		z = math.Min(z, math.Log2(w/(tileSize*fx)))
	}
	if fy > 0 {
		z = math.Min(z, math.Log2(h/(tileSize*fy)))
	}
	if math.IsInf(z, 1) || math.IsNaN(z) {
		return MapMaxZoom
	}
	return int(math.Floor(z))
}

func clampLat(p orb.Point) orb.Point {
	const limit = 85.05112878
	p[1] = math.Max(-limit, math.Min(limit, p[1]))
	p[0] = math.Max(-180, math.Min(180, p[0]))
	return p
}

func clampMapZoom(z int) int {
	if z < MapMinZoom {
		return MapMinZoom
	}
	if z > MapMaxZoom {
		return MapMaxZoom
	}
	return z
}
