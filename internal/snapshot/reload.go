package snapshot

import (
	"context"
	"fmt"
	"time"

	"evimap/internal/geo"
	"evimap/internal/logger"
	"evimap/internal/metrics"
)

// Source 数据集来源（数据库或目录）
type Source interface {
	LoadDataset(ctx context.Context) (*geo.Dataset, error)
}

// DirSource 从目录读取 GeoJSON/JSON 文件
type DirSource struct{ Dir string }

func (d DirSource) LoadDataset(ctx context.Context) (*geo.Dataset, error) {
	return geo.LoadDir(d.Dir)
}

// 文档注释：从来源重新加载并切换快照
// 约束：加载失败时保留当前快照并返回错误；成功后新快照对后续请求立即生效。
func Reload(ctx context.Context, src Source, h *Holder) (*Snapshot, error) {
	start := time.Now()
	ds, err := src.LoadDataset(ctx)
	if err != nil {
		metrics.SnapshotReloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	s := h.Publish(ds)
	metrics.SnapshotReloadsTotal.WithLabelValues("ok").Inc()
	logger.L().Info("snapshot_reloaded",
		"version", s.Version,
		"provinces", len(ds.Provinces),
		"districts", len(ds.Districts),
		"subdistricts", len(ds.Subdistricts),
		"pois", len(ds.POIs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

// 文档注释：后台定期重载
// 背景：源数据由导入工具离线写入，服务按固定周期刷新快照；错误由日志记录，任务继续调度。
// 约束：interval<=0 时不启动；ctx 取消后协程退出。
func StartPeriodic(ctx context.Context, src Source, h *Holder, interval time.Duration) {
	if interval <= 0 {
		return
	}
	l := logger.L()
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				l.Debug("snapshot_reload_stop")
				return
			case <-t.C:
				if _, err := Reload(ctx, src, h); err != nil {
					l.Error("snapshot_reload_error", "err", err)
				}
			}
		}
	}()
}
