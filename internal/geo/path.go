package geo

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Op 路径指令
type Op byte

const (
	OpMove  Op = 'M'
	OpLine  Op = 'L'
	OpClose Op = 'Z'
)

// Command 单条路径指令，OpClose 不使用坐标
type Command struct {
	Op Op
	X  float64
	Y  float64
}

// Path 扁平化的矢量路径
type Path []Command

// 文档注释：几何 → 矢量路径
// 约束：每个环输出 M(首点) + L(后续点) + Z；多面与洞按顺序拼接为一条路径；
// y = -纬度，与 ComputeBounds 一致；空几何返回空路径，调用方应跳过该区域而非绘制占位图形。
func Project(mp orb.MultiPolygon) Path {
	var out Path
	for _, poly := range mp {
		for _, ring := range poly {
			started := false
			for _, pt := range ring {
				if !validVertex(pt) {
					continue
				}
				op := OpLine
				if !started {
					op = OpMove
					started = true
				}
				out = append(out, Command{Op: op, X: pt[0], Y: -pt[1]})
			}
			if started {
				out = append(out, Command{Op: OpClose})
			}
		}
	}
	return out
}

// ProjectSimplified：先以 Douglas-Peucker 简化（阈值单位为度）再投影；tolerance<=0 等同 Project
func ProjectSimplified(mp orb.MultiPolygon, tolerance float64) Path {
	if tolerance <= 0 || len(mp) == 0 {
		return Project(mp)
	}
	clean := finiteOnly(mp)
	s, ok := simplify.DouglasPeucker(tolerance).Simplify(clean).(orb.MultiPolygon)
	if !ok {
		return Project(clean)
	}
	return Project(s)
}

// Empty 是否为空路径
func (p Path) Empty() bool { return len(p) == 0 }

// String：SVG path d 属性文本，如 "M 100 -13 L 101 -13 Z"
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, c := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte(c.Op))
		if c.Op == OpClose {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(c.X, 'f', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(c.Y, 'f', -1, 64))
	}
	return sb.String()
}

// 文档注释：标签锚点（面积加权质心，投影坐标）
// 约束：无有效顶点时返回 false；零面积几何退化为顶点均值。
func LabelPoint(mp orb.MultiPolygon) (orb.Point, bool) {
	clean := finiteOnly(mp)
	if len(clean) == 0 {
		return orb.Point{}, false
	}
	c, area := planar.CentroidArea(clean)
	if area == 0 || !validVertex(c) {
		b := BoundsOf(clean)
		c = orb.Point{(b.Min[0] + b.Max[0]) / 2, -(b.Min[1] + b.Max[1]) / 2}
	}
	return orb.Point{c[0], -c[1]}, true
}

// finiteOnly：复制几何并剔除非有限顶点与空环、空面
func finiteOnly(mp orb.MultiPolygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		var np orb.Polygon
		for _, ring := range poly {
			var nr orb.Ring
			for _, pt := range ring {
				if validVertex(pt) {
					nr = append(nr, pt)
				}
			}
			if len(nr) > 0 {
				np = append(np, nr)
			}
		}
		if len(np) > 0 {
			out = append(out, np)
		}
	}
	return out
}
