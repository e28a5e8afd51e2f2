package api

import (
	"evimap/internal/choropleth"
	"evimap/internal/cluster"
	"evimap/internal/viewport"

	"github.com/paulmach/orb"
)

// 分级着色结果中的单个区域
type regionResult struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ParentID   string     `json:"parent_id,omitempty"`
	Amount     float64    `json:"amount"`
	Bucket     int        `json:"bucket"`
	Fill       string     `json:"fill"`
	LabelColor string     `json:"label_color"`
	Path       string     `json:"path,omitempty"`
	Label      *orb.Point `json:"label,omitempty"`
}

type choroplethResult struct {
	Version uint64             `json:"version"`
	Level   string             `json:"level"`
	Filters []string           `json:"filters"`
	Regions []regionResult     `json:"regions"`
	Legend  choropleth.Palette `json:"legend"`
}

type pathResult struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Path  string     `json:"path"`
	Label *orb.Point `json:"label,omitempty"`
}

type boundsResult struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func toBounds(b orb.Bound) boundsResult {
	return boundsResult{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// 选区以 id 列表传入，在当前快照中解析
type selectionRequest struct {
	Provinces    []string `json:"provinces"`
	Districts    []string `json:"districts"`
	Subdistricts []string `json:"subdistricts"`
}

type viewportRequest struct {
	State     *viewport.State  `json:"state"`
	Surface   viewport.Surface `json:"surface"`
	Event     viewport.Event   `json:"event"`
	Selection selectionRequest `json:"selection"`
}

type viewportResult struct {
	State   viewport.State   `json:"state"`
	ViewBox string           `json:"view_box"`
	Map     viewport.MapView `json:"map"`
}

type clustersRequest struct {
	Filters []string `json:"filters"`
	Zoom    int      `json:"zoom"`
}

type clusterResult struct {
	Key      string          `json:"key"`
	Province string          `json:"province"`
	Center   orb.Point       `json:"center"`
	Summary  cluster.Summary `json:"summary"`
}

// 外部聚合层只提供成员数量；null 表示缺失
type summaryRequest struct {
	Members []struct {
		Amount *float64 `json:"amount"`
	} `json:"members"`
}

type hitResult struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Level    string  `json:"level"`
	ParentID string  `json:"parent_id,omitempty"`
	Amount   float64 `json:"amount"`
	Fill     string  `json:"fill"`
}

type errorResult struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
