package index

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/models"
	"github.com/starford/morphovis/internal/storage"
)

// Run triggers.
const (
	TriggerStartup = "startup"
	TriggerWatch   = "watch"
	TriggerManual  = "manual"
)

// SyncOptions controls a library sync.
type SyncOptions struct {
	// Workers bounds the number of files analyzed concurrently. Values below 1
	// mean one.
	Workers int
	Trigger string
}

// Sync walks the library and brings the index up to date:
//   - new/changed files are parsed, analyzed and upserted
//   - files removed from disk are deleted from the index
//
// Files that fail to parse are logged and counted, not fatal. Their previous
// results are dropped so the index never reports content that is gone. The
// finished run is recorded and returned.
func Sync(ctx context.Context, db *DB, store storage.Provider, catalog *analysis.Catalog, opts SyncOptions, logger *slog.Logger) (models.Run, error) {
	run := models.Run{ID: uuid.NewString(), Trigger: opts.Trigger, StartedAt: time.Now().UTC()}
	syncRuns.WithLabelValues(opts.Trigger).Inc()

	metas, err := store.List("")
	if err != nil {
		return run, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return run, err
	}

	var (
		mu      sync.Mutex
		changed []models.MorphologyMetadata
	)
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] != m.Checksum {
			changed = append(changed, m)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for _, m := range changed {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcome := "analyzed"
			data, err := store.Read(m.Path)
			if err == nil {
				err = indexFile(db, catalog, m.Path, run.ID, data)
			}
			if err != nil {
				outcome = "failed"
				logger.Warn("sync: analyze failed", slog.String("path", m.Path), slog.String("error", err.Error()))
				if _, indexed := checksums[m.Path]; indexed {
					if delErr := db.DeleteMorphology(m.Path); delErr != nil {
						logger.Warn("sync: drop stale results failed", slog.String("path", m.Path), slog.String("error", delErr.Error()))
					}
				}
			} else {
				logger.Debug("sync: analyzed", slog.String("path", m.Path))
			}
			syncFiles.WithLabelValues(outcome).Inc()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				run.Failed++
			} else {
				run.Analyzed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return run, err
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteMorphology(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		run.Removed++
		syncFiles.WithLabelValues("removed").Inc()
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	run.FinishedAt = time.Now().UTC()
	syncDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	if err := db.InsertRun(run); err != nil {
		return run, err
	}
	logger.Info("sync: finished",
		slog.String("run_id", run.ID),
		slog.String("trigger", run.Trigger),
		slog.Int("analyzed", run.Analyzed),
		slog.Int("removed", run.Removed),
		slog.Int("failed", run.Failed))
	return run, nil
}
