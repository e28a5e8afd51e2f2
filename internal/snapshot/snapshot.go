// 包 snapshot：不可变数据快照、原子切换与聚合结果缓存
package snapshot

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"evimap/internal/aggregate"
	"evimap/internal/geo"
	"evimap/internal/metrics"

	"github.com/paulmach/orb"
)

// 文档注释：一次加载的只读数据快照
// 约束：构建后不再修改，可被任意多个请求并发读取；Version 单调递增，用于缓存键。
type Snapshot struct {
	Version   uint64
	LoadedAt  time.Time
	Data      *geo.Dataset
	Index     aggregate.ParentIndex
	Territory orb.Bound
	byID      map[geo.Level]map[string]geo.Region
	types     []string
}

// New：由数据集构建快照并预建上级索引与 id 索引
func New(ds *geo.Dataset, version uint64) *Snapshot {
	if ds == nil {
		ds = &geo.Dataset{}
	}
	s := &Snapshot{
		Version:   version,
		LoadedAt:  time.Now(),
		Data:      ds,
		Index:     aggregate.NewParentIndex(ds.Provinces, ds.Districts),
		Territory: geo.ComputeBounds(ds.Provinces),
		byID:      make(map[geo.Level]map[string]geo.Region, 3),
	}
	for _, l := range []geo.Level{geo.LevelProvince, geo.LevelDistrict, geo.LevelSubdistrict} {
		m := make(map[string]geo.Region, len(ds.Regions(l)))
		for _, r := range ds.Regions(l) {
			m[r.ID] = r
		}
		s.byID[l] = m
	}
	seen := map[string]bool{}
	for _, p := range ds.POIs {
		if k, ok := p.EffectiveType(); ok && !seen[k] {
			seen[k] = true
			s.types = append(s.types, k)
		}
	}
	sort.Strings(s.types)
	return s
}

// Types：数据中出现过的全部有效类型（已排序），用作默认勾选项
func (s *Snapshot) Types() []string { return s.types }

// Region：按层级与 id 查找
func (s *Snapshot) Region(l geo.Level, id string) (geo.Region, bool) {
	r, ok := s.byID[l][id]
	return r, ok
}

// Lookup：按 id 列表取区域，未知 id 忽略
func (s *Snapshot) Lookup(l geo.Level, ids []string) []geo.Region {
	out := make([]geo.Region, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.byID[l][id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Children：某层级中上级为 parentID 的区域；parentID 为空时返回整层
func (s *Snapshot) Children(l geo.Level, parentID string) []geo.Region {
	all := s.Data.Regions(l)
	if parentID == "" || l == geo.LevelProvince {
		return all
	}
	out := make([]geo.Region, 0)
	for _, r := range all {
		if r.ParentID == parentID {
			out = append(out, r)
		}
	}
	return out
}

// 文档注释：动态快照持有者
// 背景：通过 atomic.Value 提供无锁读与整体切换，重载期间读路径不阻塞，请求看到的要么是旧快照要么是新快照。
// 约束：Set(nil) 被忽略。
type Holder struct {
	v   atomic.Value
	seq atomic.Uint64
}

// Load：未设置时返回空快照（全部层级为空，包围盒为默认值）
func (h *Holder) Load() *Snapshot {
	if x := h.v.Load(); x != nil {
		return x.(*Snapshot)
	}
	return New(nil, 0)
}

// Set：切换当前快照
func (h *Holder) Set(s *Snapshot) {
	if s == nil {
		return
	}
	h.v.Store(s)
	metrics.SnapshotVersion.Set(float64(s.Version))
	metrics.SnapshotSize.WithLabelValues("provinces").Set(float64(len(s.Data.Provinces)))
	metrics.SnapshotSize.WithLabelValues("districts").Set(float64(len(s.Data.Districts)))
	metrics.SnapshotSize.WithLabelValues("subdistricts").Set(float64(len(s.Data.Subdistricts)))
	metrics.SnapshotSize.WithLabelValues("pois").Set(float64(len(s.Data.POIs)))
}

// Publish：以下一个版本号包装数据集并切换
func (h *Holder) Publish(ds *geo.Dataset) *Snapshot {
	s := New(ds, h.seq.Add(1))
	h.Set(s)
	return s
}

// Engine 在快照上执行聚合并缓存结果
type Engine struct {
	memo *LRU[map[string]float64]
}

// NewEngine：size 为缓存条目上限，ttl<=0 表示仅按容量淘汰
func NewEngine(size int, ttl time.Duration) *Engine {
	return &Engine{memo: NewLRU[map[string]float64](size, ttl)}
}

// 文档注释：某层级全部区域的汇总结果
// 约束：返回的 map 在缓存与调用方之间共享，调用方只读；键 = 快照版本|层级|勾选项。
func (e *Engine) Totals(s *Snapshot, level geo.Level, filters aggregate.FilterSet) map[string]float64 {
	key := strconv.FormatUint(s.Version, 10) + "|" + string(level) + "|" + filters.Key()
	if v, ok := e.memo.Get(key); ok {
		metrics.AggregateCacheHitsTotal.Inc()
		return v
	}
	metrics.AggregateCacheMissesTotal.Inc()
	start := time.Now()
	totals, st := aggregate.AggregateWithStats(s.Data.Regions(level), s.Data.POIs, filters, level, s.Index)
	metrics.AggregateDurationMs.WithLabelValues(string(level)).Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.JoinMatchesTotal.WithLabelValues(string(level), "id").Add(float64(st.IDMatched))
	metrics.JoinMatchesTotal.WithLabelValues(string(level), "name").Add(float64(st.NameMatched))
	metrics.JoinMatchesTotal.WithLabelValues(string(level), "unmatched").Add(float64(st.Unmatched))
	e.memo.Set(key, totals)
	return totals
}
