package viewport

import (
	"math"

	"evimap/internal/geo"

	"github.com/paulmach/orb"
)

// Kind 视口事件类型
type Kind string

const (
	KindWheel      Kind = "wheel"
	KindPinchStart Kind = "pinch_start"
	KindPinch      Kind = "pinch"
	KindPinchEnd   Kind = "pinch_end"
	KindDrag       Kind = "drag"
	KindZoomIn     Kind = "zoom_in"
	KindZoomOut    Kind = "zoom_out"
	KindReset      Kind = "reset"
	KindFit        Kind = "fit"
	KindResize     Kind = "resize"
)

// 文档注释：选区
// Territory 为空选区时回退的全境区域（通常是全部省份）。
type Selection struct {
	Provinces    []geo.Region
	Districts    []geo.Region
	Subdistricts []geo.Region
	Territory    []geo.Region
}

// 文档注释：视口事件
// X/Y 为锚点像素坐标（相对绘制区域左上角）；DX/DY 为拖动像素位移；
// DeltaY 为滚轮原始增量；Distance 为双指间距离。
type Event struct {
	Kind      Kind      `json:"kind"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	DX        float64   `json:"dx"`
	DY        float64   `json:"dy"`
	DeltaY    float64   `json:"delta_y"`
	Distance  float64   `json:"distance"`
	Surface   Surface   `json:"surface"`
	Selection Selection `json:"-"`
}

// WheelFactor：1 + sign(-dy)·min(|dy|·0.01, 0.1)；dy=0 或非有限返回 1
func WheelFactor(deltaY float64) float64 {
	if deltaY == 0 || math.IsNaN(deltaY) || math.IsInf(deltaY, 0) {
		return 1
	}
	step := math.Min(math.Abs(deltaY)*0.01, 0.1)
	if deltaY > 0 {
		return 1 - step
	}
	return 1 + step
}

// 文档注释：状态转换
// 约束：纯函数，不修改入参；未知事件原样返回；事件串行应用，后到者覆盖先到者。
func Apply(s State, e Event) State {
	switch e.Kind {
	case KindWheel:
		return ZoomAt(s, WheelFactor(e.DeltaY), e.X, e.Y)
	case KindPinchStart:
		if e.Distance > 0 {
			s.LastPinch = e.Distance
		}
		return s
	case KindPinch:
		if !(e.Distance > 0) {
			return s
		}
		if !(s.LastPinch > 0) {
			s.LastPinch = e.Distance
			return s
		}
		next := ZoomAt(s, e.Distance/s.LastPinch, e.X, e.Y)
		next.LastPinch = e.Distance
		return next
	case KindPinchEnd:
		s.LastPinch = 0
		return s
	case KindDrag:
		return Drag(s, e.DX, e.DY)
	case KindZoomIn:
		return ZoomAt(s, ZoomStep, s.Surface.W/2, s.Surface.H/2)
	case KindZoomOut:
		return ZoomAt(s, 1/ZoomStep, s.Surface.W/2, s.Surface.H/2)
	case KindReset:
		return Reset(s)
	case KindFit:
		return Fit(s, e.Selection)
	case KindResize:
		if e.Surface.W >= 0 && e.Surface.H >= 0 {
			s.Surface = e.Surface
		}
		return s
	}
	return s
}

// 文档注释：以锚点为焦点缩放
// 约束：缩放前后锚点下的地图坐标不变：pan += (rel - 0.5)·(span - span')；
// 目标缩放被钳制时使用实际生效的倍数，完全被钳制（缩放不变）时 Pan 不动。
// 绘制区域尺寸未知时锚点视为中心。
func ZoomAt(s State, factor, x, y float64) State {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return s
	}
	old := s.zoom()
	next := ClampZoom(old * factor)
	if next == old {
		s.Zoom = old
		return s
	}
	bw, bh := s.baseSpan()
	rx, ry := relative(x, s.Surface.W), relative(y, s.Surface.H)
	s.Pan.X += (rx - 0.5) * (bw/old - bw/next)
	s.Pan.Y += (ry - 0.5) * (bh/old - bh/next)
	s.Zoom = next
	return s
}

func relative(v, size float64) float64 {
	if !(size > 0) || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.5
	}
	return v / size
}

// 文档注释：拖动平移
// 约束：像素位移按 当前视框宽高 / 绘制区域像素 换算，内容随指针移动；绘制区域尺寸未知时不动。
func Drag(s State, dx, dy float64) State {
	w, h := s.Span()
	if s.Surface.W > 0 && !math.IsNaN(dx) && !math.IsInf(dx, 0) {
		s.Pan.X -= dx * w / s.Surface.W
	}
	if s.Surface.H > 0 && !math.IsNaN(dy) && !math.IsInf(dy, 0) {
		s.Pan.Y -= dy * h / s.Surface.H
	}
	return s
}

// Reset：缩放回 DefaultZoom、平移归零，框架保持不变
func Reset(s State) State {
	s.Zoom = DefaultZoom
	s.Pan = Pan{}
	s.LastPinch = 0
	return s
}

// 文档注释：适配选区
// 约束：最深的非空层级生效（区 > 县 > 省），框架取其几何包围盒并使用该层级留白；
// 选区为空时框架为全境、留白 PaddingTerritory；两种情况都重置缩放与平移，与之前状态无关。
func Fit(s State, sel Selection) State {
	s.Frame, s.Padding = frameFor(sel)
	return Reset(s)
}

func frameFor(sel Selection) (orb.Bound, float64) {
	level, regions, ok := sel.Deepest()
	if !ok {
		return geo.ComputeBounds(sel.Territory), PaddingTerritory
	}
	return geo.ComputeBounds(regions), paddingFor(level)
}

func paddingFor(l geo.Level) float64 {
	switch l {
	case geo.LevelSubdistrict:
		return PaddingSubdistrict
	case geo.LevelDistrict:
		return PaddingDistrict
	}
	return PaddingProvince
}

// Empty：选区没有任何行政区
func (sel Selection) Empty() bool {
	return len(sel.Provinces) == 0 && len(sel.Districts) == 0 && len(sel.Subdistricts) == 0
}

// Deepest：最深的非空层级及其区域；空选区返回 false
func (sel Selection) Deepest() (geo.Level, []geo.Region, bool) {
	switch {
	case len(sel.Subdistricts) > 0:
		return geo.LevelSubdistrict, sel.Subdistricts, true
	case len(sel.Districts) > 0:
		return geo.LevelDistrict, sel.Districts, true
	case len(sel.Provinces) > 0:
		return geo.LevelProvince, sel.Provinces, true
	}
	return "", nil, false
}
