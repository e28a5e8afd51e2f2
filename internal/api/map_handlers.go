package api

import (
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"

	"evimap/internal/cluster"
	"evimap/internal/geo"
	"evimap/internal/logger"
)

// 文档注释：分级着色
// 背景：前端按层级绘制行政区并着色；parent 限定县级为某省下属、区级为某县下属。
// 约束：每个返回区域都有数量（无匹配为 0）；paths=1 时附带矢量路径与标注点，空几何的区域不附路径。
func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	snap := s.snaps.Load()
	fs := queryFilters(r, snap)
	regions := snap.Children(level, r.URL.Query().Get("parent"))
	totals := s.engine.Totals(snap, level, fs)
	withPaths := r.URL.Query().Get("paths") == "1"
	tol := simplifyParam(r)

	out := choroplethResult{
		Version: snap.Version,
		Level:   string(level),
		Filters: activeKeys(fs),
		Regions: make([]regionResult, 0, len(regions)),
		Legend:  s.cls.Palette(),
	}
	for _, reg := range regions {
		amount := totals[reg.ID]
		b := s.cls.Classify(amount)
		rr := regionResult{
			ID:         reg.ID,
			Name:       reg.Name,
			ParentID:   reg.ParentID,
			Amount:     amount,
			Bucket:     b.Index,
			Fill:       b.Color,
			LabelColor: s.cls.LabelColor(b.Color),
		}
		if withPaths {
			if p := geo.ProjectSimplified(reg.Geometry, tol); !p.Empty() {
				rr.Path = p.String()
				if lp, ok := geo.LabelPoint(reg.Geometry); ok {
					rr.Label = &lp
				}
			}
		}
		out.Regions = append(out.Regions, rr)
	}
	logger.L().Debug("choropleth_done", "level", level, "regions", len(out.Regions), "filters", fs.Key(), "version", snap.Version)
	writeJSON(w, http.StatusOK, out)
}

// handlePaths：仅路径与标注点，空几何的区域跳过
func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	snap := s.snaps.Load()
	tol := simplifyParam(r)
	regions := snap.Children(level, r.URL.Query().Get("parent"))
	out := make([]pathResult, 0, len(regions))
	for _, reg := range regions {
		p := geo.ProjectSimplified(reg.Geometry, tol)
		if p.Empty() {
			continue
		}
		pr := pathResult{ID: reg.ID, Name: reg.Name, Path: p.String()}
		if lp, ok := geo.LabelPoint(reg.Geometry); ok {
			pr.Label = &lp
		}
		out = append(out, pr)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBounds：ids 为空时返回整层包围盒；未知 id 忽略，全部未知时为默认包围盒
func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	snap := s.snaps.Load()
	regions := snap.Data.Regions(level)
	if ids := splitIDs(r.URL.Query().Get("ids")); len(ids) > 0 {
		regions = snap.Lookup(level, ids)
	}
	writeJSON(w, http.StatusOK, toBounds(geo.ComputeBounds(regions)))
}

// handleHit：点击命中测试，返回包含该坐标的区域及其当前数量
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	snap := s.snaps.Load()
	reg, ok := geo.RegionAt(snap.Data.Regions(level), lng, lat)
	if !ok {
		writeError(w, r, http.StatusNotFound, errors.New("no region at point"))
		return
	}
	amount := s.engine.Totals(snap, level, queryFilters(r, snap))[reg.ID]
	writeJSON(w, http.StatusOK, hitResult{
		ID:       reg.ID,
		Name:     reg.Name,
		Level:    string(level),
		ParentID: reg.ParentID,
		Amount:   amount,
		Fill:     s.cls.Classify(amount).Color,
	})
}

// handleHeatmap：[lat, lng, intensity]；无有效坐标的点位跳过
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	snap := s.snaps.Load()
	fs := queryFilters(r, snap)
	out := make([][3]float64, 0, len(snap.Data.POIs))
	for _, p := range snap.Data.POIs {
		k, ok := p.EffectiveType()
		if !ok || !fs.Active(k) {
			continue
		}
		if !p.HasCoords {
			continue
		}
		out = append(out, [3]float64{p.Lat, p.Lng, cluster.HeatIntensity(p)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cls.Palette())
}

// simplifyParam：简化阈值（度），缺省或非法为 0
func simplifyParam(r *http.Request) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get("simplify"), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func activeKeys(fs map[string]bool) []string {
	out := make([]string, 0, len(fs))
	for k, on := range fs {
		if on {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
