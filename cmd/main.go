// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evimap/internal/api"
	"evimap/internal/choropleth"
	"evimap/internal/logger"
	"evimap/internal/metrics"
	"evimap/internal/middleware"
	"evimap/internal/migrate"
	"evimap/internal/snapshot"
	"evimap/internal/store"
	"evimap/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 背景：postgres 为默认来源；file 模式直接读取目录下的 GeoJSON/JSON，便于离线演示
	var src snapshot.Source
	var st *store.Store
	switch strings.ToLower(os.Getenv("DATA_SOURCE")) {
	case "file":
		dir := os.Getenv("DATA_DIR")
		if dir == "" {
			dir = filepath.Join("data", "geo")
		}
		l.Info("data_source_file", "dir", dir)
		src = snapshot.DirSource{Dir: dir}
	default:
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		l.Info("db_open_ok")
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		rc := utils.OpenRedisFromEnv()
		if rc == nil {
			l.Info("redis_disabled")
		} else {
			if err := rc.Ping(ctx).Err(); err != nil {
				l.Error("redis_ping_error", "err", err)
			} else {
				l.Info("redis_ping_ok")
			}
			defer rc.Close()
		}
		ttl := time.Duration(utils.EnvInt("REDIS_TTL_S", 600)) * time.Second
		st = store.AttachDB(db, rc, ttl)
		src = st
	}

	var holder snapshot.Holder
	if _, err := snapshot.Reload(ctx, src, &holder); err != nil {
		// 约束：首次加载失败时以空快照启动，等待下次定时或手动重载
		l.Error("snapshot_initial_error", "err", err)
	}
	interval := time.Duration(utils.EnvInt("SNAPSHOT_RELOAD_S", 300)) * time.Second
	snapshot.StartPeriodic(ctx, src, &holder, interval)

	engine := snapshot.NewEngine(utils.EnvInt("AGG_CACHE_SIZE", 256), 0)
	srv := api.NewServer(&holder, engine, choropleth.Default())

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(srv)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	// 文档注释：手动重载快照
	// 背景：导入工具写库后可立即生效，无需等待定时任务；数据库模式下先清空行缓存再读取。
	mux.HandleFunc(apiBase+"/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t := r.Header.Get("x-admin-token")
		if t == "" || t != os.Getenv("ADMIN_TOKEN") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if st != nil {
			st.InvalidateAll(r.Context())
		}
		if _, err := snapshot.Reload(r.Context(), src, &holder); err != nil {
			l.Error("snapshot_reload_error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	gr := logger.OpenGeoIP()
	if gr != nil {
		defer gr.Close()
	}
	handler := logger.AccessMiddleware(l, gr)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "evimap.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil {
			l.Error("server_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil {
		l.Error("server_error", "err", err)
	}
}
