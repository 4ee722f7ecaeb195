package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T, maxBytes int64) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return fs
}

func TestSaveAndInfo(t *testing.T) {
	fs := newTestStore(t, 1024)
	saved, err := fs.Save("photo.PNG", "image/png", strings.NewReader("pngdata"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !saved.IsImage {
		t.Fatal("png should be detected as image")
	}
	if !strings.HasSuffix(saved.StoredName, ".png") {
		t.Fatalf("stored name %q should keep the extension", saved.StoredName)
	}
	if saved.Size != int64(len("pngdata")) {
		t.Fatalf("size = %d", saved.Size)
	}

	info, err := fs.Info(saved.StoredName)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Size != saved.Size || info.MIMEType != "image/png" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestSaveRejectsDisallowedMIME(t *testing.T) {
	fs := newTestStore(t, 1024)
	_, err := fs.Save("archive.zip", "application/zip", strings.NewReader("zipzip"))
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	assertDirEmpty(t, fs.BasePath())
}

func TestSaveRejectsOversizedAndRemovesPartial(t *testing.T) {
	fs := newTestStore(t, 4)
	_, err := fs.Save("notes.txt", "text/plain", strings.NewReader("this is too long"))
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	assertDirEmpty(t, fs.BasePath())
}

func TestRemove(t *testing.T) {
	fs := newTestStore(t, 1024)
	saved, err := fs.Save("notes.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Remove(saved.StoredName); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fs.Remove(saved.StoredName); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestInfoRejectsPathTraversal(t *testing.T) {
	fs := newTestStore(t, 1024)
	if _, err := fs.Info("../../etc/passwd"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound for traversal name, got %v", err)
	}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, filepath.Base(e.Name()))
		}
		t.Fatalf("expected no files left on disk, found %v", names)
	}
}
