// Package converter performs one-shot media, image and document conversions.
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"andretools/internal/fileingest"
	"andretools/internal/models"
)

// supportedFormats maps an input media type to the formats it converts to.
var supportedFormats = map[string][]string{
	"audio/mpeg":       {"mp3", "wav"},
	"audio/wav":        {"mp3", "wav"},
	"audio/opus":       {"mp3", "wav"},
	"audio/ogg":        {"mp3", "wav"},
	"audio/webm":       {"mp3", "wav"},
	"application/ogg":  {"mp3", "wav"},
	"audio/x-opus":     {"mp3", "wav"},
	"audio/x-opus+ogg": {"mp3", "wav"},
	"video/mp4":        {"mp3", "mp4"},
	"video/quicktime":  {"mp3", "mp4"},
	"image/jpeg":       {"png", "pdf"},
	"image/png":        {"jpg", "pdf"},
	"text/plain":       {"pdf"},
}

// mediaTypeAliases folds common non-canonical spellings.
var mediaTypeAliases = map[string]string{
	"audio/mp3":      "audio/mpeg",
	"audio/x-wav":    "audio/wav",
	"audio/wave":     "audio/wav",
	"audio/vnd.wave": "audio/wav",
	"image/jpg":      "image/jpeg",
	"image/pjpeg":    "image/jpeg",
}

// Config controls where outputs are written.
type Config struct {
	OutputDir string
	FFmpeg    string
}

// Request describes one conversion.
type Request struct {
	InputPath    string
	OriginalName string
	MediaType    string // resolved with ResolveMediaType
	Format       string
}

// Result describes the produced file.
type Result struct {
	OutputPath   string
	OutputName   string // "<uuid>.<format>", served under /downloads
	DownloadName string // "<original stem>.<format>"
	Size         int64
}

// Converter dispatches conversions by input media type.
type Converter struct {
	cfg    Config
	runner commandRunner
	newID  func() string
	now    func() time.Time
}

// New returns a converter writing into cfg.OutputDir.
func New(cfg Config) *Converter {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	return &Converter{cfg: cfg, runner: execRunner{}, newID: uuid.NewString, now: time.Now}
}

// OutputDir is the directory holding converted files.
func (c *Converter) OutputDir() string { return c.cfg.OutputDir }

// SupportedFormats returns a copy of the input to targets table.
func SupportedFormats() map[string][]string {
	out := make(map[string][]string, len(supportedFormats))
	for k, v := range supportedFormats {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// AcceptedMediaTypes lists every input media type, sorted.
func AcceptedMediaTypes() []string {
	types := make([]string, 0, len(supportedFormats))
	for k := range supportedFormats {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Targets returns the formats mediaType can be converted to.
func Targets(mediaType string) []string {
	return supportedFormats[canonical(mediaType)]
}

// ResolveMediaType decides the effective input type. A ".opus" name always
// wins; otherwise the declared type is used, falling back to content sniffing
// when the client sent nothing useful.
func ResolveMediaType(declared, fileName, path string) string {
	if strings.HasSuffix(strings.ToLower(fileName), ".opus") {
		return "audio/opus"
	}
	mediaType := canonical(declared)
	if mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType
	}
	if path == "" {
		return mediaType
	}
	sniffed, err := fileingest.DetectMediaType(path)
	if err != nil {
		log.WithField("path", path).Warnf("converter: content sniffing failed: %v", err)
		return mediaType
	}
	return canonical(sniffed)
}

func canonical(mediaType string) string {
	mt := fileingest.NormalizeMediaType(mediaType)
	if alias, ok := mediaTypeAliases[mt]; ok {
		return alias
	}
	return mt
}

// Supports reports whether mediaType to format is a known conversion.
func Supports(mediaType, format string) bool {
	for _, f := range Targets(mediaType) {
		if f == strings.ToLower(format) {
			return true
		}
	}
	return false
}

// Convert runs one conversion. The input file is left for the caller to remove.
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		return Result{}, fmt.Errorf("%w: no target format given", models.ErrUnsupportedTarget)
	}
	mediaType := canonical(req.MediaType)
	if !Supports(mediaType, format) {
		return Result{}, fmt.Errorf("%w: %s to %s", models.ErrUnsupportedTarget, mediaType, format)
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	outName := c.newID() + "." + format
	outPath := filepath.Join(c.cfg.OutputDir, outName)
	logger := log.WithFields(log.Fields{"input": req.InputPath, "output": outPath, "media_type": mediaType, "format": format})
	logger.Info("conversion started")

	var err error
	switch {
	case strings.HasPrefix(mediaType, "audio/"), strings.HasPrefix(mediaType, "video/"), mediaType == "application/ogg":
		err = c.convertMedia(ctx, req.InputPath, outPath, format)
	case strings.HasPrefix(mediaType, "image/"):
		err = convertImage(req.InputPath, outPath, mediaType, format)
	case mediaType == "text/plain":
		err = textToPDF(req.InputPath, outPath, stem(req.OriginalName), c.now())
	default:
		err = fmt.Errorf("%w: %s", models.ErrUnsupportedType, mediaType)
	}
	if err != nil {
		if rmErr := os.Remove(outPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warnf("failed to remove partial output: %v", rmErr)
		}
		logger.Errorf("conversion failed: %v", err)
		return Result{}, err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("conversion produced no output: %w", err)
	}
	logger.WithField("size", info.Size()).Info("conversion completed")

	return Result{
		OutputPath:   outPath,
		OutputName:   outName,
		DownloadName: stem(req.OriginalName) + "." + format,
		Size:         info.Size(),
	}, nil
}

// PurgeOlderThan removes converted files last modified before now-age.
func (c *Converter) PurgeOlderThan(age time.Duration) (int, error) {
	entries, err := os.ReadDir(c.cfg.OutputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := c.now().Add(-age)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.cfg.OutputDir, e.Name())); err != nil {
			log.WithField("file", e.Name()).Warnf("converter: purge failed: %v", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func stem(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "converted"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
