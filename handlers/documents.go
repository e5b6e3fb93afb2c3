package handlers

import (
	"errors"
	"net/http"

	"github.com/docchat/backend/internal/document/service"
	"github.com/docchat/backend/pkg/apperr"
	"github.com/docchat/backend/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed on top of the file cap for form framing.
const multipartOverhead = 1 << 20

// DocumentHandler serves the per-user document endpoints.
type DocumentHandler struct {
	docs     *service.Service
	maxBytes int64
}

func NewDocumentHandler(docs *service.Service, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxBytes: maxBytes}
}

// Register routes on a group that already requires an authenticated user.
func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/document", h.GetRaw)
	rg.PUT("/document", h.PutRaw)

	chat := rg.Group("/chat")
	chat.GET("", h.GetCurrent)
	chat.POST("/upload", h.Upload)
	chat.POST("/ask", h.Ask)
	chat.DELETE("/delete", h.Delete)
}

func emptyDocument(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": service.MsgEmpty, "file": false})
}

// GetRaw returns the stored blob untouched.
func (h *DocumentHandler) GetRaw(c *gin.Context) {
	u := middleware.CurrentUser(c)
	raw, err := h.docs.Raw(c.Request.Context(), u.ID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if raw == nil {
		emptyDocument(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": *raw})
}

// PutRaw overwrites the stored blob. An empty string clears it.
func (h *DocumentHandler) PutRaw(c *gin.Context) {
	var req struct {
		Document *string `json:"document"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Document == nil {
		middleware.RespondError(c, apperr.Wrap(err, apperr.CodeValidation, "document is required"))
		return
	}
	u, err := h.docs.Replace(c.Request.Context(), middleware.CurrentUser(c).ID, *req.Document)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "email": u.Email, "document": u.Document})
}

// GetCurrent returns the parsed document with file=true, or the empty marker.
func (h *DocumentHandler) GetCurrent(c *gin.Context) {
	d, err := h.docs.Current(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if d == nil {
		emptyDocument(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": d, "file": true})
}

// Upload accepts a multipart "file" and stores it as the user's document.
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes*2+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			middleware.RespondError(c, apperr.Wrap(err, apperr.CodePayloadTooLarge, service.MsgTooLarge))
			return
		}
		middleware.RespondError(c, apperr.Wrap(err, apperr.CodeValidation, "file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.RespondError(c, apperr.Wrap(err, apperr.CodeInternal, "could not read upload"))
		return
	}
	defer f.Close()

	res, err := h.docs.Upload(c.Request.Context(), middleware.CurrentUser(c).ID, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": res.Filename, "data": gin.H{"message": res.Message}})
}

// Ask answers a question about the stored document.
func (h *DocumentHandler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, apperr.Wrap(err, apperr.CodeValidation, "question is required"))
		return
	}
	answer, err := h.docs.Ask(c.Request.Context(), middleware.CurrentUser(c).ID, req.Question)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// Delete clears the stored document; repeating it is harmless.
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": service.MsgDeleted})
}
