package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/morphovis/internal/models"
)

// ErrNotMorphology is returned when a write or move targets a file without
// the library extension.
var ErrNotMorphology = errors.New("storage: not an " + Extension + " file")

// FS is a Provider over a directory of SWC files. Hidden directories are
// private to the library (temp files, trash) and never listed.
type FS struct {
	root   string
	rootFS fs.FS
}

// NewFS opens the library at root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, rootFS: os.DirFS(abs)}, nil
}

// resolve maps a library path to an absolute file path. Only local paths
// are accepted: no absolute paths, no ".." escaping the root.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	local, err := filepath.Localize(path.Clean(filepath.ToSlash(rel)))
	if err != nil || !filepath.IsLocal(local) {
		return "", fmt.Errorf("storage: path outside library: %q", rel)
	}
	return filepath.Join(f.root, local), nil
}

// resolveMorphology is resolve for paths that must name an SWC file.
func (f *FS) resolveMorphology(rel string) (string, error) {
	if !IsMorphologyFile(strings.ToLower(rel)) {
		return "", fmt.Errorf("%w: %q", ErrNotMorphology, rel)
	}
	return f.resolve(rel)
}

// List returns the SWC files under dir in lexical path order.
func (f *FS) List(dir string) ([]models.MorphologyMetadata, error) {
	if _, err := f.resolve(dir); err != nil {
		return nil, err
	}
	start := "."
	if dir != "" {
		start = path.Clean(filepath.ToSlash(dir))
	}

	var out []models.MorphologyMetadata
	err := fs.WalkDir(f.rootFS, start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != start && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !IsMorphologyFile(strings.ToLower(d.Name())) {
			return nil
		}
		meta, err := f.stat(p, d)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", dir, err)
	}
	return out, nil
}

func (f *FS) stat(p string, d fs.DirEntry) (models.MorphologyMetadata, error) {
	info, err := d.Info()
	if err != nil {
		return models.MorphologyMetadata{}, err
	}
	file, err := f.rootFS.Open(p)
	if err != nil {
		return models.MorphologyMetadata{}, err
	}
	defer file.Close()
	sum, err := ChecksumReader(file)
	if err != nil {
		return models.MorphologyMetadata{}, fmt.Errorf("%s: %w", p, err)
	}
	return models.MorphologyMetadata{Path: p, Checksum: sum, UpdatedAt: info.ModTime()}, nil
}

// Read returns the raw bytes of a library file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write stores an SWC file. The content lands in a hidden temp file that is
// synced and then renamed over p, so readers and the watcher never see a
// partial morphology.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.resolveMorphology(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".morphovis-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", p, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: commit %s: %w", p, err)
	}
	committed = true
	return nil
}

// Delete removes a library file and any directories it leaves empty.
func (f *FS) Delete(p string) error {
	abs, err := f.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	f.pruneEmptyDirs(filepath.Dir(abs))
	return nil
}

// Move renames a morphology, creating the target directory. An existing
// target is reported as os.ErrExist.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.resolve(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.resolveMorphology(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(absNew); err == nil {
		return fmt.Errorf("storage: move %s: %w", newPath, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move %s: %w", oldPath, err)
	}
	f.pruneEmptyDirs(filepath.Dir(absOld))
	return nil
}

// pruneEmptyDirs walks up from dir removing empty directories, stopping at
// the library root or the first non-empty directory.
func (f *FS) pruneEmptyDirs(dir string) {
	for dir != f.root && strings.HasPrefix(dir, f.root+string(os.PathSeparator)) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
