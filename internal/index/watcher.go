package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/models"
	"github.com/starford/morphovis/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// watcher holds what one Watch call needs to re-analyze files.
type watcher struct {
	db      *DB
	store   storage.Provider
	catalog *analysis.Catalog
	root    string
	logger  *slog.Logger
	cb      EventCallback
	run     models.Run
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// Watch starts an fsnotify watcher on the library root and re-analyzes .swc
// files as they change until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass against the disk. The whole
// session is recorded as one run when Watch returns.
func Watch(ctx context.Context, db *DB, store storage.Provider, catalog *analysis.Catalog, root string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w := &watcher{
		db:      db,
		store:   store,
		catalog: catalog,
		root:    root,
		logger:  logger,
		cb:      cb,
		run:     models.Run{ID: uuid.NewString(), Trigger: TriggerWatch, StartedAt: time.Now().UTC()},
	}
	syncRuns.WithLabelValues(TriggerWatch).Inc()
	defer w.finish()

	logger.Info("watcher: started", slog.String("root", root), slog.String("run_id", w.run.ID))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					w.indexNewDir(absPath)
					continue
				}
			}

			if !storage.IsMorphologyFile(strings.ToLower(absPath)) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				w.analyze(rel, kind)

			case ev.Op&fsnotify.Remove != 0:
				w.remove(rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old path only; the new one arrives as a
				// Create when it stays inside a watched directory.
				w.remove(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *watcher) analyze(rel, kind string) bool {
	data, err := w.store.Read(rel)
	if err == nil {
		err = indexFile(w.db, w.catalog, rel, w.run.ID, data)
	}
	if err != nil {
		w.run.Failed++
		syncFiles.WithLabelValues("failed").Inc()
		w.logger.Warn("watcher: analyze failed", slog.String("path", rel), slog.String("error", err.Error()))
		w.dropStale(rel)
		return false
	}
	w.run.Analyzed++
	syncFiles.WithLabelValues("analyzed").Inc()
	w.logger.Debug("watcher: analyzed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
	return true
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteMorphology(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.run.Removed++
	syncFiles.WithLabelValues("removed").Inc()
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(EventDeleted, rel)
}

// dropStale removes the indexed results of a file whose new content no longer
// parses.
func (w *watcher) dropStale(rel string) {
	cs, err := w.db.GetChecksum(rel)
	if err != nil || cs == "" {
		return
	}
	if err := w.db.DeleteMorphology(rel); err != nil {
		w.logger.Warn("watcher: drop stale results failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.emit(EventDeleted, rel)
}

// reconcile removes index entries without a file on disk and analyzes files
// whose checksum differs from the indexed one.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			w.analyze(p, EventCreated)
		}
	}
}

// indexNewDir analyzes any .swc files found in a newly created directory.
func (w *watcher) indexNewDir(dirPath string) {
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsMorphologyFile(strings.ToLower(p)) {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			return nil
		}
		w.analyze(filepath.ToSlash(rel), EventCreated)
		return nil
	})
}

func (w *watcher) finish() {
	w.run.FinishedAt = time.Now().UTC()
	if err := w.db.InsertRun(w.run); err != nil {
		w.logger.Warn("watcher: record run failed", slog.String("error", err.Error()))
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
