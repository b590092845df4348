package apihandlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"andretools/internal/app"
)

// multipartOverhead is headroom above a file ceiling for form boundaries and
// other fields, so the body limit never rejects a file that is within it.
const multipartOverhead = 1 << 20

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(app *app.App) *APIHandler {
	return &APIHandler{App: app}
}

// HealthHandler reports that the process is up.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Andre Tools backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// limitBody caps the request body; reads past limit fail with *http.MaxBytesError.
func limitBody(c *gin.Context, limit int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// isMissingFile covers both an absent form field and a body that is not a
// multipart form at all.
func isMissingFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}
