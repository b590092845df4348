package excalidraw

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"andretools/internal/fileingest"
)

// Extension is the only file suffix the launcher accepts.
const Extension = ".excalidraw"

var (
	ErrNotDrawing   = errors.New("only .excalidraw files are accepted")
	ErrPathRequired = errors.New("file path is required")
	ErrFileNotFound = errors.New("file not found")
)

// Launcher ties uploads, the recent list and the browser together.
type Launcher struct {
	recents   *RecentStore
	opener    Opener
	uploadDir string
}

// NewLauncher stores uploads in uploadDir and opens drawings with opener.
func NewLauncher(recents *RecentStore, opener Opener, uploadDir string) *Launcher {
	return &Launcher{recents: recents, opener: opener, uploadDir: uploadDir}
}

// Recents returns the recent-files list, newest first.
func (l *Launcher) Recents() ([]RecentFile, error) {
	return l.recents.List()
}

// IsDrawing reports whether name carries the .excalidraw suffix.
func IsDrawing(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}

// Upload stores fh under its original base name and records it as recent.
// Re-uploading a file with the same name replaces it.
func (l *Launcher) Upload(fh *multipart.FileHeader) (RecentFile, error) {
	if fh == nil {
		return RecentFile{}, ErrPathRequired
	}
	if !IsDrawing(fh.Filename) {
		return RecentFile{}, fmt.Errorf("%w: %s", ErrNotDrawing, fh.Filename)
	}
	meta, err := fileingest.SaveUpload(fh, l.uploadDir, filepath.Base(fh.Filename))
	if err != nil {
		return RecentFile{}, err
	}
	files, err := l.recents.Touch(meta.Path, meta.Name)
	if err != nil {
		return RecentFile{}, err
	}
	log.WithFields(log.Fields{"path": meta.Path, "size": meta.Size}).Info("excalidraw file uploaded")
	return files[0], nil
}

// Add records an existing drawing on disk as recent.
func (l *Launcher) Add(path string) (RecentFile, error) {
	abs, err := l.checkDrawing(path)
	if err != nil {
		return RecentFile{}, err
	}
	files, err := l.recents.Touch(abs, filepath.Base(abs))
	if err != nil {
		return RecentFile{}, err
	}
	return files[0], nil
}

// Open sends the drawing at path to the web editor and refreshes its
// lastOpened stamp. A failure to update the list is logged, not returned.
func (l *Launcher) Open(ctx context.Context, path string) error {
	if _, err := l.checkDrawing(path); err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read drawing: %w", err)
	}
	if err := l.opener.Open(ctx, EditorURL(content)); err != nil {
		return err
	}

	logger := log.WithField("path", path)
	if found, err := l.recents.MarkOpened(path); err != nil {
		logger.Warnf("failed to refresh recent files: %v", err)
	} else if !found {
		logger.Debug("opened file is not in the recent list")
	}
	logger.Info("excalidraw file opened")
	return nil
}

func (l *Launcher) checkDrawing(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrPathRequired
	}
	if !IsDrawing(path) {
		return "", fmt.Errorf("%w: %s", ErrNotDrawing, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return filepath.Abs(path)
}
