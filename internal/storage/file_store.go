package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadError reports a rejected upload (bad MIME type or oversized payload).
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string { return e.Message }

// ErrFileNotFound is returned when a stored file does not exist.
var ErrFileNotFound = errors.New("file not found")

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
	"image/gif":       {},
	"application/pdf": {},
	"text/plain":      {},
	"text/csv":        {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// IsAllowedMIME reports whether the content type is on the upload allow-list.
func IsAllowedMIME(mimeType string) bool {
	_, ok := allowedMIMETypes[normalizeMIME(mimeType)]
	return ok
}

// IsImage reports whether the content type renders as an inline image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "image/")
}

func normalizeMIME(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// MIMEFromExtension resolves a stored file's type from its extension.
func MIMEFromExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

// SavedFile describes a stored upload.
type SavedFile struct {
	StoredName   string
	OriginalName string
	MIMEType     string
	URL          string
	Size         int64
	IsImage      bool
}

// FileStore saves uploaded attachments to disk under a base directory and
// enforces the MIME allow-list and size ceiling. Rejected uploads leave no
// partial file behind.
type FileStore struct {
	basePath string
	maxBytes int64
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string, maxBytes int64) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("storage max bytes must be positive")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath, maxBytes: maxBytes}, nil
}

// Save validates and writes an upload under a random name, keeping the
// original extension. The partially written file is removed when the size
// ceiling is hit mid-copy.
func (f *FileStore) Save(originalName, mimeType string, r io.Reader) (SavedFile, error) {
	if !IsAllowedMIME(mimeType) {
		return SavedFile{}, &UploadError{Message: "invalid file type: " + normalizeMIME(mimeType)}
	}
	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(safeFilename(originalName)))
	target := filepath.Join(f.basePath, storedName)

	out, err := os.Create(target)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(r, f.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return SavedFile{}, fmt.Errorf("write file: %w", err)
	}
	if written > f.maxBytes {
		_ = os.Remove(target)
		return SavedFile{}, &UploadError{Message: "file size exceeds maximum limit"}
	}
	return SavedFile{
		StoredName:   storedName,
		OriginalName: safeFilename(originalName),
		MIMEType:     normalizeMIME(mimeType),
		URL:          "/uploads/" + storedName,
		Size:         written,
		IsImage:      IsImage(mimeType),
	}, nil
}

// Info stats a stored file by name.
func (f *FileStore) Info(filename string) (SavedFile, error) {
	name := safeFilename(filename)
	stat, err := os.Stat(filepath.Join(f.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return SavedFile{}, ErrFileNotFound
		}
		return SavedFile{}, fmt.Errorf("stat file: %w", err)
	}
	mimeType := MIMEFromExtension(name)
	return SavedFile{
		StoredName: name,
		MIMEType:   mimeType,
		URL:        "/uploads/" + name,
		Size:       stat.Size(),
		IsImage:    IsImage(mimeType),
	}, nil
}

// Remove deletes a stored file by name.
func (f *FileStore) Remove(filename string) error {
	name := safeFilename(filename)
	if err := os.Remove(filepath.Join(f.basePath, name)); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// BasePath returns the directory uploads are served from.
func (f *FileStore) BasePath() string { return f.basePath }

func safeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
