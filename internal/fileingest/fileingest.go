package fileingest

import (
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// FileMeta holds metadata about an uploaded file saved to disk.
type FileMeta struct {
	Path         string // where the upload was stored
	Name         string // original client file name
	Size         int64
	DeclaredType string // media type sent by the client, parameters stripped
	ModTime      time.Time
}

// AcceptRule lists the media types and extensions a handler accepts. A file
// passes if EITHER its declared type OR its extension matches.
type AcceptRule struct {
	MediaTypes []string
	Extensions []string // lower case, with leading dot
}

// Accepts reports whether the declared type or the file name extension is allowed.
func (r AcceptRule) Accepts(declaredType, fileName string) bool {
	mediaType := NormalizeMediaType(declaredType)
	for _, t := range r.MediaTypes {
		if mediaType != "" && mediaType == t {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range r.Extensions {
		if ext != "" && ext == e {
			return true
		}
	}
	return false
}

// NormalizeMediaType lower-cases a Content-Type value and drops parameters.
func NormalizeMediaType(value string) string {
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(value, ";", 2)[0]))
	}
	return mediaType
}

// DetectMediaType sniffs a file's media type from its magic bytes.
func DetectMediaType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return NormalizeMediaType(mt.String()), nil
}

// UniqueName builds "<prefix>-<unixms>-<random><ext>" keeping the original extension.
func UniqueName(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s-%d-%d%s", prefix, time.Now().UnixMilli(), rand.IntN(1e9), ext)
}

/*
SaveUpload copies a multipart file into dir under name.

The directory is created if needed. On any copy failure the partial file is
removed before returning.
*/
func SaveUpload(fh *multipart.FileHeader, dir, name string) (FileMeta, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileMeta{}, fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return FileMeta{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst := filepath.Join(dir, filepath.Base(name))
	out, err := os.Create(dst)
	if err != nil {
		return FileMeta{}, fmt.Errorf("create %s: %w", dst, err)
	}
	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return FileMeta{}, fmt.Errorf("write %s: %w", dst, err)
	}

	return ExtractFileMeta(dst, fh.Filename, fh.Header.Get("Content-Type"), written)
}

/*
ExtractFileMeta stats a stored file and combines it with client metadata.
*/
func ExtractFileMeta(path, originalName, declaredType string, size int64) (FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMeta{}, err
	}
	if size <= 0 {
		size = info.Size()
	}
	return FileMeta{
		Path:         path,
		Name:         originalName,
		Size:         size,
		DeclaredType: NormalizeMediaType(declaredType),
		ModTime:      info.ModTime(),
	}, nil
}
