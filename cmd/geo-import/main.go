package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evimap/internal/geo"
	"evimap/internal/logger"
	"evimap/internal/migrate"
	"evimap/internal/store"
	"evimap/internal/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// 文档注释：读取一个行政区文件
// 背景：按扩展名选择解析方式；.shp 通过 go-shp 读取，.geojson 为 FeatureCollection，.json 为记录数组。
func readRegions(level geo.Level, path, idField string) ([]geo.Region, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return geo.LoadShapefile(level, path, idField)
	case ".geojson":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return geo.DecodeFeatureCollection(level, b)
	case ".json":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return geo.DecodeRegions(level, b)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

// readPOIs：缺少 id 的记录分配随机 UUID，重复导入同一文件会产生新行
func readPOIs(path string) ([]geo.POI, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pois, err := geo.DecodePOIs(b)
	if err != nil {
		return nil, err
	}
	for i := range pois {
		if pois[i].ID == "" {
			pois[i].ID = uuid.NewString()
		}
	}
	return pois, nil
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()

	level := flag.String("level", "", "province | district | subdistrict (required with -file)")
	file := flag.String("file", "", "boundary file: .shp, .geojson or .json")
	idField := flag.String("id-field", "id", "attribute holding the region id (shapefile)")
	pois := flag.String("pois", "", "evidence records (pois.json)")
	batch := flag.Int("batch", 500, "rows per transaction")
	redisAddr := flag.String("redis", "", "redis host:port to invalidate row cache (defaults to REDIS_* env)")
	flag.Parse()

	if *file == "" && *pois == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	var rc *redis.Client
	if *redisAddr != "" {
		rc = utils.OpenRedis(*redisAddr, os.Getenv("REDIS_PASS"))
	} else {
		rc = utils.OpenRedisFromEnv()
	}
	if rc != nil {
		defer rc.Close()
	}
	st := store.AttachDB(db, rc, 0)
	ctx := context.Background()

	if *file != "" {
		lv, ok := geo.ParseLevel(*level)
		if !ok {
			l.Error("import_bad_level", "level", *level)
			os.Exit(2)
		}
		start := time.Now()
		regions, err := readRegions(lv, *file, *idField)
		if err != nil {
			l.Error("import_read_error", "file", *file, "err", err)
			os.Exit(1)
		}
		n, err := st.UpsertRegions(ctx, lv, regions, *batch)
		if err != nil {
			l.Error("import_regions_error", "level", lv, "done", n, "err", err)
			os.Exit(1)
		}
		l.Info("import_regions_ok", "level", lv, "rows", n, "duration_ms", time.Since(start).Milliseconds())
	}

	if *pois != "" {
		start := time.Now()
		ps, err := readPOIs(*pois)
		if err != nil {
			l.Error("import_read_error", "file", *pois, "err", err)
			os.Exit(1)
		}
		n, err := st.UpsertPOIs(ctx, ps, *batch)
		if err != nil {
			l.Error("import_pois_error", "done", n, "err", err)
			os.Exit(1)
		}
		l.Info("import_pois_ok", "rows", n, "duration_ms", time.Since(start).Milliseconds())
	}
}
