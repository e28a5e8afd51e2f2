// 包 store: 提供与 PostgreSQL 的数据访问层，读取行政区与证物记录并负责导入写库
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evimap/internal/geo"
	"evimap/internal/logger"
	"evimap/internal/metrics"

	_ "github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownLevel 层级不在 province/district/subdistrict 之内
var ErrUnknownLevel = errors.New("unknown level")

// Store: 数据库访问入口，持有连接池与可选的 Redis 行缓存
type Store struct {
	db  *sql.DB
	rc  *redis.Client
	ttl time.Duration
}

// AttachDB：rc 可为 nil（不使用行缓存）；ttl<=0 时取 10 分钟
func AttachDB(db *sql.DB, rc *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{db: db, rc: rc, ttl: ttl}
}

func (s *Store) DB() *sql.DB { return s.db }

// tableSpec：各层级表名与列名
type tableSpec struct {
	table  string
	name   string
	parent string
}

var tables = map[geo.Level]tableSpec{
	geo.LevelProvince:    {table: "provinces", name: "province_name"},
	geo.LevelDistrict:    {table: "districts", name: "district_name", parent: "province_id"},
	geo.LevelSubdistrict: {table: "subdistricts", name: "subdistrict_name", parent: "district_id"},
}

// regionRow：缓存中的原始行，几何保持 ST_AsGeoJSON 文本
type regionRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	GeoJSON  string `json:"geojson,omitempty"`
}

// poiRow：evidence_finds 原始行
type poiRow struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Subtype       string   `json:"subtype,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Province      string   `json:"province"`
	Amphoe        string   `json:"amphoe"`
	Tambon        string   `json:"tambon"`
	ProvinceID    string   `json:"province_id,omitempty"`
	DistrictID    string   `json:"district_id,omitempty"`
	SubdistrictID string   `json:"subdistrict_id,omitempty"`
}

func rowsKey(kind string) string { return "evimap:rows:" + kind }

// 文档注释：读取某层级的全部行政区
// 背景：几何由 PostGIS 以 GeoJSON 文本输出，入库前经 geo.NormalizeRegion 统一字段。
// 约束：命中 Redis 行缓存时不访问数据库；缓存读写失败只记日志，不影响结果。
func (s *Store) LoadRegions(ctx context.Context, level geo.Level) ([]geo.Region, error) {
	spec, ok := tables[level]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	rows, hit := cacheGet[[]regionRow](ctx, s, rowsKey(string(level)))
	if !hit {
		parent := "''"
		if spec.parent != "" {
			parent = "COALESCE(" + spec.parent + ", '')"
		}
		q := "SELECT id, " + spec.name + ", " + parent + ", COALESCE(ST_AsGeoJSON(geom), '') FROM " + spec.table + " ORDER BY id"
		rs, err := s.db.QueryContext(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", spec.table, err)
		}
		defer rs.Close()
		for rs.Next() {
			var r regionRow
			if err := rs.Scan(&r.ID, &r.Name, &r.ParentID, &r.GeoJSON); err != nil {
				return nil, fmt.Errorf("scan %s: %w", spec.table, err)
			}
			rows = append(rows, r)
		}
		if err := rs.Err(); err != nil {
			return nil, fmt.Errorf("iterate %s: %w", spec.table, err)
		}
		s.cacheSet(ctx, rowsKey(string(level)), rows)
	}
	out := make([]geo.Region, 0, len(rows))
	for _, r := range rows {
		raw := map[string]any{"id": r.ID, spec.name: r.Name, "geom": r.GeoJSON}
		if spec.parent != "" {
			raw[spec.parent] = r.ParentID
		}
		if reg, ok := geo.NormalizeRegion(level, raw); ok {
			out = append(out, reg)
		}
	}
	logger.L().Debug("db_regions_loaded", "level", level, "count", len(out))
	return out, nil
}

// LoadPOIs：读取全部证物记录；大类无法识别的记录跳过
func (s *Store) LoadPOIs(ctx context.Context) ([]geo.POI, error) {
	rows, hit := cacheGet[[]poiRow](ctx, s, rowsKey("pois"))
	if !hit {
		rs, err := s.db.QueryContext(ctx, `SELECT id, category, subtype, amount, latitude, longitude,
            province, amphoe, tambon, COALESCE(province_id, ''), COALESCE(district_id, ''), COALESCE(subdistrict_id, '')
            FROM evidence_finds ORDER BY id`)
		if err != nil {
			return nil, fmt.Errorf("query evidence_finds: %w", err)
		}
		defer rs.Close()
		for rs.Next() {
			var r poiRow
			var amount sql.NullFloat64
			if err := rs.Scan(&r.ID, &r.Category, &r.Subtype, &amount, &r.Latitude, &r.Longitude,
				&r.Province, &r.Amphoe, &r.Tambon, &r.ProvinceID, &r.DistrictID, &r.SubdistrictID); err != nil {
				return nil, fmt.Errorf("scan evidence_finds: %w", err)
			}
			if amount.Valid {
				v := amount.Float64
				r.Amount = &v
			}
			rows = append(rows, r)
		}
		if err := rs.Err(); err != nil {
			return nil, fmt.Errorf("iterate evidence_finds: %w", err)
		}
		s.cacheSet(ctx, rowsKey("pois"), rows)
	}
	out := make([]geo.POI, 0, len(rows))
	for _, r := range rows {
		raw := map[string]any{
			"id":             r.ID,
			"category":       r.Category,
			"subtype":        r.Subtype,
			"latitude":       r.Latitude,
			"longitude":      r.Longitude,
			"province":       r.Province,
			"amphoe":         r.Amphoe,
			"tambon":         r.Tambon,
			"province_id":    r.ProvinceID,
			"district_id":    r.DistrictID,
			"subdistrict_id": r.SubdistrictID,
		}
		if r.Amount != nil {
			raw["amount"] = *r.Amount
		}
		if p, ok := geo.NormalizePOI(raw); ok {
			out = append(out, p)
		}
	}
	logger.L().Debug("db_pois_loaded", "count", len(out))
	return out, nil
}

// LoadDataset：三级行政区与证物一次读齐
func (s *Store) LoadDataset(ctx context.Context) (*geo.Dataset, error) {
	var ds geo.Dataset
	var err error
	if ds.Provinces, err = s.LoadRegions(ctx, geo.LevelProvince); err != nil {
		return nil, err
	}
	if ds.Districts, err = s.LoadRegions(ctx, geo.LevelDistrict); err != nil {
		return nil, err
	}
	if ds.Subdistricts, err = s.LoadRegions(ctx, geo.LevelSubdistrict); err != nil {
		return nil, err
	}
	if ds.POIs, err = s.LoadPOIs(ctx); err != nil {
		return nil, err
	}
	return &ds, nil
}

// 文档注释：批量写入行政区（按 id 覆盖）
// 背景：供 cmd/geo-import 导入 GeoJSON/Shapefile；每 batch 条提交一次，降低长事务锁持有时间。
// 约束：几何统一写为 MultiPolygon（ST_Multi），空几何写 NULL；成功后清除该层级行缓存。
func (s *Store) UpsertRegions(ctx context.Context, level geo.Level, regions []geo.Region, batch int) (int, error) {
	spec, ok := tables[level]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	if batch <= 0 {
		batch = 500
	}
	cols := "id, " + spec.name + ", geom"
	vals := "$1, $2, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON(NULLIF($3, '')), 4326))"
	set := spec.name + "=EXCLUDED." + spec.name + ", geom=EXCLUDED.geom"
	if spec.parent != "" {
		cols += ", " + spec.parent
		vals += ", NULLIF($4, '')"
		set += ", " + spec.parent + "=EXCLUDED." + spec.parent
	}
	q := "INSERT INTO " + spec.table + "(" + cols + ") VALUES(" + vals + ") ON CONFLICT (id) DO UPDATE SET " + set
	n := 0
	for start := 0; start < len(regions); start += batch {
		end := start + batch
		if end > len(regions) {
			end = len(regions)
		}
		err := s.inTx(ctx, q, func(stmt *sql.Stmt) error {
			for _, r := range regions[start:end] {
				gj := ""
				if len(r.Geometry) > 0 {
					b, err := geojson.NewGeometry(r.Geometry).MarshalJSON()
					if err != nil {
						return fmt.Errorf("encode geometry %s: %w", r.ID, err)
					}
					gj = string(b)
				}
				args := []any{r.ID, r.Name, gj}
				if spec.parent != "" {
					args = append(args, r.ParentID)
				}
				if _, err := stmt.ExecContext(ctx, args...); err != nil {
					return fmt.Errorf("upsert %s %s: %w", spec.table, r.ID, err)
				}
				n++
			}
			return nil
		})
		if err != nil {
			return n, err
		}
		logger.L().Debug("db_regions_batch", "level", level, "done", n)
	}
	s.invalidate(ctx, rowsKey(string(level)))
	return n, nil
}

// UpsertPOIs：批量写入证物记录（按 id 覆盖）；HasAmount=false 写 NULL
func (s *Store) UpsertPOIs(ctx context.Context, pois []geo.POI, batch int) (int, error) {
	if batch <= 0 {
		batch = 1000
	}
	const q = `INSERT INTO evidence_finds(id, category, subtype, amount, latitude, longitude, province, amphoe, tambon, province_id, district_id, subdistrict_id)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),NULLIF($11,''),NULLIF($12,''))
        ON CONFLICT (id) DO UPDATE SET category=EXCLUDED.category, subtype=EXCLUDED.subtype, amount=EXCLUDED.amount,
        latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, province=EXCLUDED.province, amphoe=EXCLUDED.amphoe,
        tambon=EXCLUDED.tambon, province_id=EXCLUDED.province_id, district_id=EXCLUDED.district_id, subdistrict_id=EXCLUDED.subdistrict_id`
	n := 0
	for start := 0; start < len(pois); start += batch {
		end := start + batch
		if end > len(pois) {
			end = len(pois)
		}
		err := s.inTx(ctx, q, func(stmt *sql.Stmt) error {
			for _, p := range pois[start:end] {
				var amount sql.NullFloat64
				if p.HasAmount {
					amount = sql.NullFloat64{Float64: p.Amount, Valid: true}
				}
				if _, err := stmt.ExecContext(ctx, p.ID, string(p.Category), p.Subtype, amount, p.Lat, p.Lng,
					p.ProvinceName, p.DistrictName, p.SubdistrictName, p.ProvinceID, p.DistrictID, p.SubdistrictID); err != nil {
					return fmt.Errorf("upsert evidence_finds %s: %w", p.ID, err)
				}
				n++
			}
			return nil
		})
		if err != nil {
			return n, err
		}
	}
	s.invalidate(ctx, rowsKey("pois"))
	return n, nil
}

// inTx：单语句批量执行，fn 返回错误时回滚
func (s *Store) inTx(ctx context.Context, q string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	if err := fn(stmt); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InvalidateAll：清除全部行缓存，快照重载前调用可强制回源
func (s *Store) InvalidateAll(ctx context.Context) {
	s.invalidate(ctx, rowsKey(string(geo.LevelProvince)), rowsKey(string(geo.LevelDistrict)),
		rowsKey(string(geo.LevelSubdistrict)), rowsKey("pois"))
}

// cacheGet：命中且完整解码时返回 true
func cacheGet[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T
	if s.rc == nil {
		return zero, false
	}
	b, err := s.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("redis_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return zero, false
	}
	v, err := decodeCached[T](b)
	if err != nil {
		logger.L().Warn("redis_decode_error", "key", key, "err", err)
		metrics.RedisMissesTotal.Inc()
		return zero, false
	}
	metrics.RedisHitsTotal.Inc()
	return v, true
}

// decodeCached：解码到临时值，失败时丢弃部分结果，调用方回源数据库
func decodeCached[T any](b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (s *Store) cacheSet(ctx context.Context, key string, v any) {
	if s.rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rc.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logger.L().Warn("redis_set_error", "key", key, "err", err)
	}
}

func (s *Store) invalidate(ctx context.Context, keys ...string) {
	if s.rc == nil {
		return
	}
	if err := s.rc.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn("redis_del_error", "err", err)
	}
}
