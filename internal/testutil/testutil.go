// Package testutil provides shared test helpers: temporary libraries, result
// databases and small SWC fixtures.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/morphovis/internal/index"
	"github.com/starford/morphovis/internal/storage"
)

// AxonCell is a soma with one straight axon of length 10.
const AxonCell = `# axon only
1 1 0 0 0 1 -1
2 2 5 0 0 1 1
3 2 10 0 0 1 2
4 2 15 0 0 1 3
`

// ForkCell is a soma with one basal dendrite that bifurcates once, giving
// three sections.
const ForkCell = `# fork
1 1 0 0 0 2 -1
2 3 2 0 0 1 1
3 3 4 0 0 1 2
4 3 5 1 0 0.5 3
5 3 5 -1 0 0.5 3
`

// TestDB creates a temporary results database that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "morphovis-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Seed writes files (path → content) into store.
func Seed(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
}
