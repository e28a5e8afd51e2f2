package viewport

import (
	"math"
	"testing"

	"evimap/internal/geo"

	"github.com/paulmach/orb"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func square(id string, level geo.Level, lng, lat, size float64) geo.Region {
	ring := orb.Ring{{lng, lat}, {lng + size, lat}, {lng + size, lat + size}, {lng, lat + size}, {lng, lat}}
	return geo.Region{ID: id, Name: id, Level: level, Geometry: orb.MultiPolygon{{ring}}}
}

func testState() State {
	return New(orb.Bound{Min: orb.Point{100, -15}, Max: orb.Point{102, -13}}, 0.1, Surface{W: 800, H: 600})
}

// mapPoint：像素锚点对应的地图坐标
func mapPoint(s State, x, y float64) (float64, float64) {
	vb := s.ViewBox()
	return vb.MinX + x/s.Surface.W*vb.Width, vb.MinY + y/s.Surface.H*vb.Height
}

func TestViewBoxString(t *testing.T) {
	s := New(geo.DefaultBounds, PaddingTerritory, Surface{})
	if got, want := s.ViewBox().String(), "96.5 -21.5 10 17"; got != want {
		t.Errorf("viewBox = %q, want %q", got, want)
	}
}

func TestViewBoxDegenerateFrame(t *testing.T) {
	s := New(orb.Bound{Min: orb.Point{100, -13}, Max: orb.Point{100, -13}}, 0, Surface{W: 100, H: 100})
	vb := s.ViewBox()
	if vb.Width != geo.MinSpan || vb.Height != geo.MinSpan {
		t.Errorf("degenerate span = %v x %v, want %v", vb.Width, vb.Height, geo.MinSpan)
	}
	s = Drag(s, 10, 10)
	if math.IsNaN(s.Pan.X) || math.IsInf(s.Pan.X, 0) {
		t.Errorf("pan not finite: %+v", s.Pan)
	}
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	s := testState()
	bx, by := mapPoint(s, 200, 450)
	s = ZoomAt(s, 2, 200, 450)
	ax, ay := mapPoint(s, 200, 450)
	if !near(ax, bx) || !near(ay, by) {
		t.Errorf("anchor moved: (%v,%v) -> (%v,%v)", bx, by, ax, ay)
	}
	if s.Zoom != 2 {
		t.Errorf("zoom = %v, want 2", s.Zoom)
	}
}

func TestZoomIdempotence(t *testing.T) {
	for _, f := range []float64{1.05, 1.2, 2, 0.9} {
		s := testState()
		s.Pan = Pan{X: 0.3, Y: -0.2}
		z := ZoomAt(ZoomAt(s, f, 123, 456), 1/f, 123, 456)
		if !near(z.Zoom, s.Zoom) || !near(z.Pan.X, s.Pan.X) || !near(z.Pan.Y, s.Pan.Y) {
			t.Errorf("factor %v: got zoom %v pan %+v, want zoom %v pan %+v", f, z.Zoom, z.Pan, s.Zoom, s.Pan)
		}
	}
}

func TestZoomClamped(t *testing.T) {
	s := testState()
	s.Zoom = ZoomMax
	s.Pan = Pan{X: 0.5, Y: 0.25}
	got := Apply(s, Event{Kind: KindWheel, DeltaY: -100, X: 10, Y: 10})
	if got.Zoom != ZoomMax || got.Pan != s.Pan {
		t.Errorf("zoom in at max: %+v", got)
	}

	s.Zoom = ZoomMin
	got = Apply(s, Event{Kind: KindZoomOut})
	if got.Zoom != ZoomMin || got.Pan != s.Pan {
		t.Errorf("zoom out at min: %+v", got)
	}
}

func TestZoomPartialClamp(t *testing.T) {
	s := testState()
	s.Zoom = 9
	bx, by := mapPoint(s, 700, 100)
	s = ZoomAt(s, 1.5, 700, 100)
	if s.Zoom != ZoomMax {
		t.Fatalf("zoom = %v, want %v", s.Zoom, ZoomMax)
	}
	ax, ay := mapPoint(s, 700, 100)
	if !near(ax, bx) || !near(ay, by) {
		t.Errorf("anchor moved under partial clamp")
	}
}

func TestWheelFactor(t *testing.T) {
	cases := []struct {
		dy, want float64
	}{
		{0, 1},
		{-5, 1.05},
		{5, 0.95},
		{-500, 1.1},
		{500, 0.9},
		{math.NaN(), 1},
	}
	for _, c := range cases {
		if got := WheelFactor(c.dy); !near(got, c.want) {
			t.Errorf("WheelFactor(%v) = %v, want %v", c.dy, got, c.want)
		}
	}
}

func TestZoomButtons(t *testing.T) {
	s := testState()
	in := Apply(s, Event{Kind: KindZoomIn})
	if !near(in.Zoom, ZoomStep) || in.Pan != (Pan{}) {
		t.Errorf("zoom in = %+v", in)
	}
	out := Apply(in, Event{Kind: KindZoomOut})
	if !near(out.Zoom, 1) {
		t.Errorf("zoom out = %v", out.Zoom)
	}
}

func TestDrag(t *testing.T) {
	s := testState()
	w, h := s.Span()
	got := Apply(s, Event{Kind: KindDrag, DX: 80, DY: -60})
	if !near(got.Pan.X, -80*w/800) || !near(got.Pan.Y, 60*h/600) {
		t.Errorf("pan = %+v", got.Pan)
	}

	s.Zoom = 2
	got = Drag(s, 80, 0)
	if !near(got.Pan.X, -80*(w/2)/800) {
		t.Errorf("drag at zoom 2 pan.x = %v", got.Pan.X)
	}
}

func TestPinch(t *testing.T) {
	s := testState()
	s = Apply(s, Event{Kind: KindPinchStart, Distance: 100})
	s = Apply(s, Event{Kind: KindPinch, Distance: 200, X: 400, Y: 300})
	if !near(s.Zoom, 2) {
		t.Errorf("zoom after pinch = %v, want 2", s.Zoom)
	}
	s = Apply(s, Event{Kind: KindPinchEnd})
	if s.LastPinch != 0 {
		t.Errorf("pinch not cleared")
	}
	before := s.Zoom
	s = Apply(s, Event{Kind: KindPinch, Distance: 50})
	if s.Zoom != before {
		t.Errorf("pinch without start changed zoom")
	}
}

func TestResetKeepsFrame(t *testing.T) {
	s := testState()
	s.Zoom, s.Pan = 4, Pan{X: 1, Y: 1}
	got := Apply(s, Event{Kind: KindReset})
	if got.Zoom != DefaultZoom || got.Pan != (Pan{}) || got.Frame != s.Frame {
		t.Errorf("reset = %+v", got)
	}
}

func TestFitEmptySelection(t *testing.T) {
	provinces := []geo.Region{
		square("10", geo.LevelProvince, 100, 13, 1),
		square("50", geo.LevelProvince, 98, 18, 1),
	}
	s := testState()
	s.Zoom, s.Pan = 3.5, Pan{X: 2, Y: -1}

	got := Apply(s, Event{Kind: KindFit, Selection: Selection{Territory: provinces}})
	want := geo.ComputeBounds(provinces)
	if got.Frame != want || got.Padding != PaddingTerritory {
		t.Errorf("frame = %+v pad %v, want %+v pad %v", got.Frame, got.Padding, want, PaddingTerritory)
	}
	if got.Zoom != DefaultZoom || got.Pan != (Pan{}) {
		t.Errorf("zoom/pan = %v %+v", got.Zoom, got.Pan)
	}

	got = Fit(s, Selection{})
	if got.Frame != geo.DefaultBounds {
		t.Errorf("no territory frame = %+v, want default", got.Frame)
	}
}

func TestFitDeepestLevel(t *testing.T) {
	p := square("10", geo.LevelProvince, 100, 13, 1)
	d := square("1001", geo.LevelDistrict, 100.2, 13.2, 0.3)
	sd := square("100101", geo.LevelSubdistrict, 100.25, 13.25, 0.05)

	cases := []struct {
		name  string
		sel   Selection
		frame orb.Bound
		pad   float64
	}{
		{"province", Selection{Provinces: []geo.Region{p}}, geo.ComputeBounds([]geo.Region{p}), PaddingProvince},
		{"district", Selection{Provinces: []geo.Region{p}, Districts: []geo.Region{d}}, geo.ComputeBounds([]geo.Region{d}), PaddingDistrict},
		{"subdistrict", Selection{Provinces: []geo.Region{p}, Districts: []geo.Region{d}, Subdistricts: []geo.Region{sd}}, geo.ComputeBounds([]geo.Region{sd}), PaddingSubdistrict},
	}
	for _, c := range cases {
		got := Fit(testState(), c.sel)
		if got.Frame != c.frame || got.Padding != c.pad {
			t.Errorf("%s: frame %+v pad %v", c.name, got.Frame, got.Padding)
		}
	}
}

func TestFitMap(t *testing.T) {
	surface := Surface{W: 1024, H: 768}
	got := FitMap(Selection{}, surface)
	if got.Zoom != MapDefaultZoom || got.Center != MapDefaultCenter {
		t.Errorf("empty fit = %+v", got)
	}

	tiny := FitMap(Selection{Subdistricts: []geo.Region{square("x", geo.LevelSubdistrict, 100.5, 13.7, 0.001)}}, surface)
	if tiny.Zoom != MapMaxZoom {
		t.Errorf("tiny fit zoom = %d, want %d", tiny.Zoom, MapMaxZoom)
	}
	if !near(tiny.Center[0], 100.5005) || !near(tiny.Center[1], 13.7005) {
		t.Errorf("tiny fit center = %v", tiny.Center)
	}

	huge := FitMap(Selection{Provinces: []geo.Region{square("y", geo.LevelProvince, 60, -10, 60)}}, surface)
	if huge.Zoom != MapMinZoom {
		t.Errorf("huge fit zoom = %d, want %d", huge.Zoom, MapMinZoom)
	}
}
