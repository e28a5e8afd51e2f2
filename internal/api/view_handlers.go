package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"evimap/internal/cluster"
	"evimap/internal/geo"
	"evimap/internal/snapshot"
	"evimap/internal/viewport"

	"github.com/paulmach/orb/maptile"
)

const maxBody = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func resolveSelection(snap *snapshot.Snapshot, req selectionRequest) viewport.Selection {
	return viewport.Selection{
		Provinces:    snap.Lookup(geo.LevelProvince, req.Provinces),
		Districts:    snap.Lookup(geo.LevelDistrict, req.Districts),
		Subdistricts: snap.Lookup(geo.LevelSubdistrict, req.Subdistricts),
		Territory:    snap.Data.Provinces,
	}
}

// 文档注释：视口状态转换
// 背景：客户端持有状态，每个手势事件提交一次，服务端返回新状态、SVG viewBox 与对应的瓦片地图视图。
// 约束：未提交状态时从全境视口开始；fit 事件的瓦片视图按选区适配（空选区为默认中心与级别）。
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	snap := s.snaps.Load()
	var st viewport.State
	if req.State != nil {
		st = *req.State
		if st.Zoom <= 0 {
			st.Zoom = viewport.DefaultZoom
		}
		st.Zoom = viewport.ClampZoom(st.Zoom)
		if st.Surface == (viewport.Surface{}) {
			st.Surface = req.Surface
		}
	} else {
		st = viewport.New(snap.Territory, viewport.PaddingTerritory, req.Surface)
	}
	ev := req.Event
	var mv viewport.MapView
	if ev.Kind == viewport.KindFit {
		ev.Selection = resolveSelection(snap, req.Selection)
		st = viewport.Apply(st, ev)
		mv = viewport.FitMap(ev.Selection, st.Surface)
	} else {
		st = viewport.Apply(st, ev)
		mv = st.MapView()
	}
	writeJSON(w, http.StatusOK, viewportResult{State: st, ViewBox: st.ViewBox().String(), Map: mv})
}

// handleClusters：按省与瓦片分组后逐组汇总
func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	var req clustersRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Zoom < 0 || req.Zoom > 22 {
		writeError(w, r, http.StatusBadRequest, errors.New("zoom must be within 0..22"))
		return
	}
	snap := s.snaps.Load()
	fs := filtersFrom(req.Filters, req.Filters != nil, snap)
	groups := cluster.GroupByTile(snap.Data.POIs, fs, maptile.Zoom(req.Zoom))
	out := make([]clusterResult, 0, len(groups))
	for _, g := range groups {
		out = append(out, clusterResult{
			Key:      g.Key,
			Province: g.Province,
			Center:   g.Center,
			Summary:  cluster.Summarize(g.Members, s.cls),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleClusterSummary：外部聚合层提交成员数量，返回单个聚合的展示参数
func (s *Server) handleClusterSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	members := make([]geo.POI, len(req.Members))
	for i, m := range req.Members {
		if m.Amount != nil && *m.Amount >= 0 && !math.IsInf(*m.Amount, 0) {
			members[i] = geo.POI{Amount: *m.Amount, HasAmount: true}
		}
	}
	writeJSON(w, http.StatusOK, cluster.Summarize(members, s.cls))
}
