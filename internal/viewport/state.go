// 包 viewport：矢量地图视口状态机（缩放、平移、适配选区），所有转换均为纯函数
package viewport

import (
	"math"
	"strconv"

	"evimap/internal/geo"

	"github.com/paulmach/orb"
)

const (
	ZoomMin     = 0.5
	ZoomMax     = 10.0
	ZoomStep    = 1.2
	DefaultZoom = 1.0
)

// 各层级适配选区时的留白（度）；空选区显示全境时用 PaddingTerritory
const (
	PaddingSubdistrict = 0.02
	PaddingDistrict    = 0.05
	PaddingProvince    = 0.1
	PaddingTerritory   = 0.5
)

// Pan 平移量（地图坐标，y 为 -纬度）
type Pan struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Surface 绘制区域像素尺寸
type Surface struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// 文档注释：视口状态
// 约束：只能经由 Apply 产生新值；Zoom 恒在 [ZoomMin, ZoomMax]；不持久化。
// LastPinch 记录双指手势上一次的指间距离，0 表示没有进行中的双指手势。
type State struct {
	Zoom      float64   `json:"zoom"`
	Pan       Pan       `json:"pan"`
	Frame     orb.Bound `json:"frame"`
	Padding   float64   `json:"padding"`
	Surface   Surface   `json:"surface"`
	LastPinch float64   `json:"last_pinch,omitempty"`
}

// New：以 frame 为框架的初始视口
func New(frame orb.Bound, padding float64, surface Surface) State {
	return State{Zoom: DefaultZoom, Frame: frame, Padding: padding, Surface: surface}
}

// Territory：全境视口（全部省份的包围盒，无省份时为默认包围盒）
func Territory(provinces []geo.Region, surface Surface) State {
	return New(geo.ComputeBounds(provinces), PaddingTerritory, surface)
}

// baseSpan：zoom=1 时视框宽高（含留白），已钳制到 MinSpan
func (s State) baseSpan() (float64, float64) {
	w := geo.ClampSpan(s.Frame.Max[0] - s.Frame.Min[0] + 2*s.Padding)
	h := geo.ClampSpan(s.Frame.Max[1] - s.Frame.Min[1] + 2*s.Padding)
	return w, h
}

// Span：当前缩放下视框宽高
func (s State) Span() (float64, float64) {
	w, h := s.baseSpan()
	z := s.zoom()
	return w / z, h / z
}

// zoom：非法缩放按 DefaultZoom 处理，避免除零
func (s State) zoom() float64 {
	if !(s.Zoom > 0) || math.IsInf(s.Zoom, 0) {
		return DefaultZoom
	}
	return s.Zoom
}

// ViewBox 视框 minX minY width height
type ViewBox struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// 文档注释：当前视框
// 约束：以 Frame 中心为基准，宽高 = 基础宽高 / zoom，再整体偏移 Pan。
func (s State) ViewBox() ViewBox {
	w, h := s.Span()
	c := s.Frame.Center()
	return ViewBox{
		MinX:   c[0] - w/2 + s.Pan.X,
		MinY:   c[1] - h/2 + s.Pan.Y,
		Width:  w,
		Height: h,
	}
}

// String：SVG viewBox 属性值
func (v ViewBox) String() string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
	return f(v.MinX) + " " + f(v.MinY) + " " + f(v.Width) + " " + f(v.Height)
}

// Center：视框中心（地图坐标）
func (v ViewBox) Center() orb.Point {
	return orb.Point{v.MinX + v.Width/2, v.MinY + v.Height/2}
}

// ClampZoom：钳制到 [ZoomMin, ZoomMax]；NaN 返回 DefaultZoom
func ClampZoom(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return DefaultZoom
	case z < ZoomMin:
		return ZoomMin
	case z > ZoomMax:
		return ZoomMax
	}
	return z
}
