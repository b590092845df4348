package apihandlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"andretools/internal/excalidraw"
)

type openRequest struct {
	FilePath string `json:"filePath"`
}

// UploadDrawingHandler stores a .excalidraw file and adds it to the recents.
func (h *APIHandler) UploadDrawingHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isMissingFile(err) {
			MissingFile(c, "no file uploaded")
			return
		}
		BadRequest(c, "invalid upload: "+err.Error())
		return
	}

	entry, err := h.App.Excalidraw.Upload(fh)
	if err != nil {
		if errors.Is(err, excalidraw.ErrNotDrawing) {
			UnsupportedType(c, excalidraw.ErrNotDrawing.Error())
			return
		}
		Internal(c, "failed to store drawing")
		log.Errorf("UploadDrawingHandler: %v", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "File uploaded",
		"filePath": entry.Path,
		"file":     entry,
	})
}

// RecentDrawingsHandler returns the recent list as a bare JSON array.
func (h *APIHandler) RecentDrawingsHandler(c *gin.Context) {
	files, err := h.App.Excalidraw.Recents()
	if err != nil {
		Internal(c, "failed to list recent files")
		log.Errorf("RecentDrawingsHandler: %v", err)
		return
	}
	c.JSON(http.StatusOK, files)
}

// OpenDrawingHandler opens a drawing in the web editor.
func (h *APIHandler) OpenDrawingHandler(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	err := h.App.Excalidraw.Open(c.Request.Context(), req.FilePath)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "File opened"})
	case errors.Is(err, excalidraw.ErrPathRequired):
		BadRequest(c, err.Error())
	case errors.Is(err, excalidraw.ErrNotDrawing):
		UnsupportedType(c, err.Error())
	case errors.Is(err, excalidraw.ErrFileNotFound):
		NotFound(c, "file not found")
	default:
		Internal(c, "failed to open file in browser")
		log.Errorf("OpenDrawingHandler: %v", err)
	}
}
