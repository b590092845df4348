package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"andretools/internal/fileingest"
	"andretools/internal/models"
	"andretools/internal/store"
)

// transcribeAccept lists what the submission endpoint takes. Either the
// declared type or the extension is enough.
var transcribeAccept = fileingest.AcceptRule{
	MediaTypes: []string{
		"audio/mpeg", "audio/mp3", "audio/wav", "audio/wave",
		"video/mp4", "video/quicktime", "video/x-msvideo",
	},
	Extensions: []string{".mp3", ".wav", ".mp4", ".mov", ".avi"},
}

var transcribeFormats = []string{"mp3", "wav", "mp4", "mov", "avi"}

// SubmitTranscriptionHandler validates an upload, registers a job and hands
// it to the runner. It never waits for recognition.
func (h *APIHandler) SubmitTranscriptionHandler(c *gin.Context) {
	maxSize := h.App.Config.Transcription.MaxFileSize
	limitBody(c, maxSize)

	fh, err := c.FormFile("audio")
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

	if !transcribeAccept.Accepts(fh.Header.Get("Content-Type"), fh.Filename) {
		UnsupportedType(c, fmt.Sprintf("%v: use MP3, WAV, MP4, MOV or AVI", models.ErrUnsupportedType))
		return
	}
	if fh.Size > maxSize {
		PayloadTooLarge(c, fmt.Sprintf("%v: limit is %s", models.ErrPayloadTooLarge, humanSize(maxSize)))
		return
	}

	meta, err := fileingest.SaveUpload(fh, h.App.Config.Storage.UploadsDir, fileingest.UniqueName("upload", fh.Filename))
	if err != nil {
		Internal(c, "failed to store upload")
		log.Errorf("SubmitTranscriptionHandler: %v", err)
		return
	}

	job, err := h.App.Jobs.Create(c.Request.Context(), models.SourceMeta{
		FileName: meta.Name,
		FileSize: meta.Size,
		FilePath: meta.Path,
	})
	if err != nil {
		if rmErr := os.Remove(meta.Path); rmErr != nil {
			log.Warnf("SubmitTranscriptionHandler: failed to remove %s: %v", meta.Path, rmErr)
		}
		Internal(c, "failed to register transcription job")
		log.Errorf("SubmitTranscriptionHandler: %v", err)
		return
	}

	h.App.Runner.Start(job, meta.Path)
	log.WithFields(log.Fields{"job_id": job.ID, "file": meta.Name, "size": meta.Size}).Info("transcription accepted")

	c.JSON(http.StatusAccepted, gin.H{
		"success":         true,
		"message":         "Transcription started",
		"transcriptionId": job.ID,
		"status":          job.Status,
	})
}

// GetTranscriptionHandler reports a job's current state. It is read-only.
func (h *APIHandler) GetTranscriptionHandler(c *gin.Context) {
	id := c.Param("id")
	job, err := h.App.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "transcription not found")
			return
		}
		Internal(c, "failed to read transcription")
		log.Errorf("GetTranscriptionHandler: %v", err)
		return
	}

	switch job.Status {
	case models.JobStatusCompleted:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"status":    job.Status,
			"text":      job.Result,
			"filename":  job.SourceFileName,
			"filesize":  job.SourceFileSize,
			"timestamp": completedAt(job).Format(time.RFC3339),
		})
	case models.JobStatusError:
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"status":  job.Status,
			"error":   job.ErrorDetail,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"status":    job.Status,
			"progress":  job.Progress,
			"filename":  job.SourceFileName,
			"startTime": job.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}

// TranscriptionStatusHandler describes the service's limits and engine.
func (h *APIHandler) TranscriptionStatusHandler(c *gin.Context) {
	maxSize := h.App.Config.Transcription.MaxFileSize
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"message":          "Transcription service available",
		"supportedFormats": transcribeFormats,
		"maxFileSize":      humanSize(maxSize),
		"maxFileSizeBytes": maxSize,
		"engine":           h.App.Runner.EngineName(),
		"model":            h.App.EngineOptions.Model,
		"concurrency":      h.App.Runner.Concurrency(),
	})
}

func completedAt(job models.Job) time.Time {
	if job.CompletedAt != nil {
		return job.CompletedAt.UTC()
	}
	return job.CreatedAt.UTC()
}

func humanSize(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
