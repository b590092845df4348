package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"andretools/internal/converter"
	"andretools/internal/fileingest"
	"andretools/internal/models"
)

// DownloadsPrefix is where converted files are served from.
const DownloadsPrefix = "/downloads"

// ConvertHandler converts one uploaded file synchronously and returns a
// download link. The upload is always removed before responding.
func (h *APIHandler) ConvertHandler(c *gin.Context) {
	maxSize := h.App.Config.Conversion.MaxFileSize
	limitBody(c, maxSize)

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
	case isTooLarge(err):
		PayloadTooLarge(c, fmt.Sprintf("%v: limit is %s", models.ErrPayloadTooLarge, humanSize(maxSize)))
		return
	case isMissingFile(err):
		MissingFile(c, models.ErrMissingFile.Error())
		return
	default:
		BadRequest(c, "invalid upload: "+err.Error())
		return
	}
	if fh.Size > maxSize {
		PayloadTooLarge(c, fmt.Sprintf("%v: limit is %s", models.ErrPayloadTooLarge, humanSize(maxSize)))
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.PostForm("format")))
	if format == "" {
		BadRequest(c, "target format is required")
		return
	}

	meta, err := fileingest.SaveUpload(fh, h.App.Config.Storage.UploadsDir, fileingest.UniqueName("convert", fh.Filename))
	if err != nil {
		Internal(c, "failed to store upload")
		log.Errorf("ConvertHandler: %v", err)
		return
	}
	defer func() {
		if err := os.Remove(meta.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("ConvertHandler: failed to remove %s: %v", meta.Path, err)
		}
	}()

	mediaType := converter.ResolveMediaType(meta.DeclaredType, meta.Name, meta.Path)
	if len(converter.Targets(mediaType)) == 0 {
		UnsupportedType(c, fmt.Sprintf("%v: %s", models.ErrUnsupportedType, mediaType))
		return
	}

	res, err := h.App.Converter.Convert(c.Request.Context(), converter.Request{
		InputPath:    meta.Path,
		OriginalName: meta.Name,
		MediaType:    mediaType,
		Format:       format,
	})
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedTarget) {
			JSONError(c, http.StatusBadRequest, "unsupported_target", err.Error())
			return
		}
		Internal(c, "conversion failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"downloadUrl": DownloadsPrefix + "/" + res.OutputName,
		"filename":    res.DownloadName,
		"filesize":    res.Size,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ConvertFormatsHandler lists the conversion table.
func (h *APIHandler) ConvertFormatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"supportedFormats": converter.SupportedFormats(),
		"acceptedTypes":    converter.AcceptedMediaTypes(),
		"maxFileSize":      humanSize(h.App.Config.Conversion.MaxFileSize),
		"maxFileSizeBytes": h.App.Config.Conversion.MaxFileSize,
	})
}
