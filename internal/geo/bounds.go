package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// 文档注释：默认包围盒（整个泰国，y 轴为 -纬度）
// 约束：输入为空或无有效顶点时返回该值，调用方不需要区分。
var DefaultBounds = orb.Bound{
	Min: orb.Point{97, -21},
	Max: orb.Point{106, -5},
}

// MinSpan 视口宽高下限，退化包围盒（单点/零宽）在除法前钳制到此值
const MinSpan = 0.1

// 文档注释：计算多个行政区几何的包围盒
// 约束：经度→x，纬度取反→y，与 Project 保持一致；非有限顶点静默跳过；不会 panic。
func ComputeBounds(regions []Region) orb.Bound {
	geoms := make([]orb.MultiPolygon, 0, len(regions))
	for i := range regions {
		geoms = append(geoms, regions[i].Geometry)
	}
	return BoundsOf(geoms...)
}

// BoundsOf：同 ComputeBounds，直接接收几何
func BoundsOf(geoms ...orb.MultiPolygon) orb.Bound {
	var b orb.Bound
	found := false
	for _, mp := range geoms {
		for _, poly := range mp {
			for _, ring := range poly {
				for _, pt := range ring {
					if !validVertex(pt) {
						continue
					}
					p := orb.Point{pt[0], -pt[1]}
					if !found {
						b = orb.Bound{Min: p, Max: p}
						found = true
						continue
					}
					b = b.Extend(p)
				}
			}
		}
	}
	if !found {
		return DefaultBounds
	}
	return b
}

// ClampSpan：宽高低于 MinSpan 时取 MinSpan（含 NaN）
func ClampSpan(v float64) float64 {
	if math.IsNaN(v) || v < MinSpan {
		return MinSpan
	}
	return v
}

func validVertex(pt orb.Point) bool {
	return isFinite(pt[0]) && isFinite(pt[1])
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
