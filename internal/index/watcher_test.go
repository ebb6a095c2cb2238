package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, dir string, store storage.Provider, db *DB, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, analysis.DefaultCatalog(), dir, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileAnalyzed(t *testing.T) {
	dir, store, db := libraryEnv(t)

	var mu sync.Mutex
	var events []string
	startWatch(t, dir, store, db, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	_ = os.WriteFile(filepath.Join(dir, "new.swc"), []byte(axonCell), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		results, _ := db.Results("new.swc")
		return len(results) > 0
	}, "new file not analyzed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.swc" || e == "updated:new.swc" {
				return true
			}
		}
		return false
	}, "expected created:new.swc callback")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir, store, db := libraryEnv(t)
	startWatch(t, dir, store, db, nil)

	_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "cell.swc"), []byte(forkCell), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("cell.swc")
		return cs != ""
	}, "swc file not analyzed")
	if cs, _ := db.GetChecksum("readme.txt"); cs != "" {
		t.Error("non-swc file indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, store, db := libraryEnv(t)
	startWatch(t, dir, store, db, nil)

	subDir := filepath.Join(dir, "mouse")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "deep.swc"), []byte(axonCell), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("mouse/deep.swc")
		return cs != ""
	}, "file in new subdir not analyzed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dir, store, db := libraryEnv(t)
	_ = store.Write("del.swc", []byte(axonCell))
	syncOnce(t, db, store, 1)
	if cs, _ := db.GetChecksum("del.swc"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	startWatch(t, dir, store, db, nil)
	_ = os.Remove(filepath.Join(dir, "del.swc"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.swc")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, store, db := libraryEnv(t)
	_ = store.Write("old.swc", []byte(forkCell))
	syncOnce(t, db, store, 1)

	startWatch(t, dir, store, db, nil)
	_ = os.Rename(filepath.Join(dir, "old.swc"), filepath.Join(dir, "renamed.swc"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.swc")
		newCS, _ := db.GetChecksum("renamed.swc")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_RecordsSessionRun(t *testing.T) {
	dir, store, db := libraryEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, analysis.DefaultCatalog(), dir, quietLogger(), nil)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	runs, _ := db.Runs(5)
	if len(runs) != 1 || runs[0].Trigger != TriggerWatch {
		t.Errorf("runs = %+v, want one watch run", runs)
	}
}

func TestWatcher_BrokenRewriteDropsOldResults(t *testing.T) {
	dir, store, db := libraryEnv(t)
	_ = store.Write("cell.swc", []byte(axonCell))
	syncOnce(t, db, store, 1)

	var mu sync.Mutex
	var events []string
	startWatch(t, dir, store, db, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	_ = os.WriteFile(filepath.Join(dir, "cell.swc"), []byte("this is not swc"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("cell.swc")
		return cs == ""
	}, "broken file still in index")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "deleted:cell.swc" {
				return true
			}
		}
		return false
	}, "expected deleted:cell.swc callback")
}
