// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evimap/internal/aggregate"
	"evimap/internal/choropleth"
	"evimap/internal/geo"
	"evimap/internal/logger"
	"evimap/internal/metrics"
	"evimap/internal/snapshot"
)

// Server 路由依赖：当前快照、聚合引擎与分级样式
type Server struct {
	snaps  *snapshot.Holder
	engine *snapshot.Engine
	cls    *choropleth.Classifier
}

func NewServer(h *snapshot.Holder, e *snapshot.Engine, c *choropleth.Classifier) *Server {
	if c == nil {
		c = choropleth.Default()
	}
	return &Server{snaps: h, engine: e, cls: c}
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/choropleth", instrument("choropleth", http.MethodGet, s.handleChoropleth))
	mux.Handle("/paths", instrument("paths", http.MethodGet, s.handlePaths))
	mux.Handle("/bounds", instrument("bounds", http.MethodGet, s.handleBounds))
	mux.Handle("/hit", instrument("hit", http.MethodGet, s.handleHit))
	mux.Handle("/heatmap", instrument("heatmap", http.MethodGet, s.handleHeatmap))
	mux.Handle("/palette", instrument("palette", http.MethodGet, s.handlePalette))
	mux.Handle("/viewport", instrument("viewport", http.MethodPost, s.handleViewport))
	mux.Handle("/clusters", instrument("clusters", http.MethodPost, s.handleClusters))
	mux.Handle("/clusters/summary", instrument("clusters_summary", http.MethodPost, s.handleClusterSummary))
	return mux
}

// instrument：方法检查与按路由计数/计时
func instrument(route, method string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("allow", method)
			writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		fn(w, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	rid := logger.RequestID(r.Context())
	if code >= 500 {
		logger.L().Error("api_error", "path", r.URL.Path, "request_id", rid, "err", err)
	} else {
		logger.L().Debug("api_bad_request", "path", r.URL.Path, "request_id", rid, "err", err)
	}
	writeJSON(w, code, errorResult{Error: err.Error(), RequestID: rid})
}

var errBadLevel = errors.New("level must be province, district or subdistrict")

// parseLevel：缺省为省级
func parseLevel(r *http.Request) (geo.Level, error) {
	s := r.URL.Query().Get("level")
	if s == "" {
		return geo.LevelProvince, nil
	}
	l, ok := geo.ParseLevel(s)
	if !ok {
		return "", errBadLevel
	}
	return l, nil
}

// filtersFrom：未提供 filters 参数时勾选数据中出现的全部类型；提供空值表示全部不勾选
func filtersFrom(raw []string, present bool, snap *snapshot.Snapshot) aggregate.FilterSet {
	if !present {
		fs := aggregate.FilterSet{}
		for _, k := range snap.Types() {
			fs[k] = true
		}
		return fs
	}
	return aggregate.ParseFilters(strings.Join(raw, ","))
}

func queryFilters(r *http.Request, snap *snapshot.Snapshot) aggregate.FilterSet {
	v, ok := r.URL.Query()["filters"]
	return filtersFrom(v, ok, snap)
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, errors.New("missing " + name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
