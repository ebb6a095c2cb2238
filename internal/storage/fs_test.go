package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cell = "1 1 0 0 0 1 -1\n2 3 1 0 0 1 1\n"

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("cell.swc", []byte(cell)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("cell.swc")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != cell {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("rat/ca1/pyr.swc", []byte(cell)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("rat/ca1/pyr.swc"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("gone.swc", []byte(cell))
	if err := s.Delete("gone.swc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("gone.swc"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("old.swc", []byte(cell))
	if err := s.Move("old.swc", "sorted/new.swc"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Read("sorted/new.swc"); err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if _, err := s.Read("old.swc"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMoveRefusesOverwrite(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.swc", []byte(cell))
	_ = s.Write("b.swc", []byte("other"))
	err := s.Move("a.swc", "b.swc")
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("err = %v, want os.ErrExist", err)
	}
	got, _ := s.Read("b.swc")
	if string(got) != "other" {
		t.Errorf("target overwritten: %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.swc", []byte(cell))
	_ = s.Write("sub/b.SWC", []byte(cell))
	_ = os.WriteFile(filepath.Join(s.root, "readme.txt"), []byte("not a morphology"), 0o644)
	_ = s.Write(".trash/c.swc", []byte(cell))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(items), items)
	}
	if items[0].Path != "a.swc" || items[1].Path != "sub/b.SWC" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Checksum != Checksum([]byte(cell)) {
		t.Errorf("checksum = %s", items[0].Checksum)
	}
}

func TestListSubdir(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("rat/a.swc", []byte(cell))
	_ = s.Write("mouse/b.swc", []byte(cell))

	items, err := s.List("rat/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "rat/a.swc" {
		t.Errorf("items = %v", items)
	}
	if _, err := s.List("../"); err == nil {
		t.Error("expected error listing outside the library")
	}
}

func TestWriteRefusesOtherExtensions(t *testing.T) {
	s := tempLibrary(t)
	for _, p := range []string{"cell.txt", "cell", "cell.swc.bak"} {
		if err := s.Write(p, []byte(cell)); !errors.Is(err, ErrNotMorphology) {
			t.Errorf("Write(%q) err = %v, want ErrNotMorphology", p, err)
		}
	}
	_ = s.Write("a.swc", []byte(cell))
	if err := s.Move("a.swc", "a.txt"); !errors.Is(err, ErrNotMorphology) {
		t.Errorf("Move err = %v, want ErrNotMorphology", err)
	}
}

func TestDeletePrunesEmptyDirs(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("rat/ca1/pyr.swc", []byte(cell))
	_ = s.Write("rat/keep.swc", []byte(cell))
	if err := s.Delete("rat/ca1/pyr.swc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "rat", "ca1")); !os.IsNotExist(err) {
		t.Errorf("rat/ca1 still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "rat")); err != nil {
		t.Errorf("rat removed with keep.swc inside: %v", err)
	}
	if _, err := os.Stat(s.root); err != nil {
		t.Errorf("library root removed: %v", err)
	}
}

func TestMovePrunesSourceDir(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("inbox/new.swc", []byte(cell))
	if err := s.Move("inbox/new.swc", "sorted/new.swc"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "inbox")); !os.IsNotExist(err) {
		t.Errorf("inbox still present: %v", err)
	}
}

func TestChecksumNormalizesLineEndings(t *testing.T) {
	crlf := strings.ReplaceAll(cell, "\n", "\r\n")
	trailing := strings.ReplaceAll(cell, "\n", " \t\n")
	noFinalNewline := strings.TrimSuffix(cell, "\n")
	want := Checksum([]byte(cell))
	for name, v := range map[string]string{"crlf": crlf, "trailing blanks": trailing, "no final newline": noFinalNewline} {
		if got := Checksum([]byte(v)); got != want {
			t.Errorf("%s: checksum differs", name)
		}
	}
	if Checksum([]byte("1 1 0 0 0 2 -1\n")) == Checksum([]byte("1 1 0 0 0 1 -1\n")) {
		t.Error("different radii share a checksum")
	}
	if len(want) != 64 {
		t.Errorf("len = %d, want hex sha256", len(want))
	}
}

func TestChecksumReaderMatchesChecksum(t *testing.T) {
	got, err := ChecksumReader(strings.NewReader(cell))
	if err != nil {
		t.Fatalf("ChecksumReader: %v", err)
	}
	if got != Checksum([]byte(cell)) {
		t.Error("stream and byte checksums differ")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)
	for _, p := range []string{"../../etc/passwd", "../outside.swc", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.swc", []byte("original"))
	if err := s.Write("atomic.swc", []byte(cell)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.swc")
	if string(got) != cell {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".morphovis-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(f, nil, 0o644)
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestIsMorphologyFile(t *testing.T) {
	if !IsMorphologyFile("x.swc") || IsMorphologyFile(".swc") || IsMorphologyFile("x.md") {
		t.Error("IsMorphologyFile misclassified")
	}
}
