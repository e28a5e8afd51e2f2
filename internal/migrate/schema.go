package migrate

import (
	"database/sql"
	"fmt"

	"evimap/internal/logger"
)

// 背景：首次运行自动创建行政区与证物表（PostGIS 几何列，SRID 4326）
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；需要数据库已安装 postgis 扩展或当前用户有权创建
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE IF NOT EXISTS provinces (
            id TEXT PRIMARY KEY,
            province_name TEXT NOT NULL,
            geom geometry(MultiPolygon, 4326)
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_province_name ON provinces(province_name)`,
		`CREATE TABLE IF NOT EXISTS districts (
            id TEXT PRIMARY KEY,
            province_id TEXT REFERENCES provinces(id) DEFERRABLE INITIALLY DEFERRED,
            district_name TEXT NOT NULL,
            geom geometry(MultiPolygon, 4326)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_districts_province ON districts(province_id)`,
		`CREATE TABLE IF NOT EXISTS subdistricts (
            id TEXT PRIMARY KEY,
            district_id TEXT REFERENCES districts(id) DEFERRABLE INITIALLY DEFERRED,
            subdistrict_name TEXT NOT NULL,
            geom geometry(MultiPolygon, 4326)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_subdistricts_district ON subdistricts(district_id)`,
		`CREATE INDEX IF NOT EXISTS idx_provinces_geom ON provinces USING GIST(geom)`,
		`CREATE INDEX IF NOT EXISTS idx_districts_geom ON districts USING GIST(geom)`,
		`CREATE INDEX IF NOT EXISTS idx_subdistricts_geom ON subdistricts USING GIST(geom)`,
		`CREATE TABLE IF NOT EXISTS evidence_finds (
            id TEXT PRIMARY KEY,
            category TEXT NOT NULL,
            subtype TEXT NOT NULL DEFAULT '',
            amount DOUBLE PRECISION,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            province TEXT NOT NULL DEFAULT '',
            amphoe TEXT NOT NULL DEFAULT '',
            tambon TEXT NOT NULL DEFAULT '',
            province_id TEXT,
            district_id TEXT,
            subdistrict_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_finds_names ON evidence_finds(province, amphoe, tambon)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema stmt %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
