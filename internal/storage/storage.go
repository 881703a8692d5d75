// Package storage abstracts where uploaded userpic files live. The
// core never inspects file bytes; it moves them and keeps URLs.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"journal/internal/models"
)

// Adapter uploads and deletes blobs addressed by file name.
type Adapter interface {
	Upload(fileName string, r io.Reader) (url string, err error)
	Delete(url string) error
	URL(fileName string) string
}

// Local stores files on the local filesystem under one directory and
// serves them under /userpics/.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Upload(fileName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(filepath.Join(l.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return l.URL(fileName), nil
}

// Delete removes the file behind a previously returned URL. A missing
// file is not an error.
func (l *Local) Delete(url string) error {
	name := extractFileName(url)
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (l *Local) URL(fileName string) string {
	return "/userpics/" + fileName
}

// Dir exposes the storage root so the HTTP layer can serve it.
func (l *Local) Dir() string { return l.dir }

func extractFileName(url string) string {
	i := strings.LastIndex(url, "/userpics/")
	if i < 0 {
		return ""
	}
	name := url[i+len("/userpics/"):]
	// Refuse anything that could walk out of the directory.
	if name == "" || strings.ContainsAny(name, "/\\") {
		return ""
	}
	return name
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// MaxUserpicSize bounds uploads at 2 MiB.
const MaxUserpicSize = 2 << 20

// ValidateImageName checks the filename extension against the allowed
// image formats.
func ValidateImageName(name string) error {
	if !imageExts[strings.ToLower(filepath.Ext(name))] {
		return models.Invalid("file", "only JPEG, PNG, and GIF files are allowed")
	}
	return nil
}

// UserpicFileName builds a unique name for a user's uploaded picture,
// keeping the original extension.
func UserpicFileName(userID, originalName string) string {
	return fmt.Sprintf("%s-%d%s", userID, time.Now().UnixMilli(), strings.ToLower(filepath.Ext(originalName)))
}
