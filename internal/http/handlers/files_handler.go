package handlers

import (
	"fmt"
	"mime"
	"net/http"

	"corpusdash/internal/domain"
	"corpusdash/internal/files"
	"corpusdash/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) open(c *gin.Context) (*files.Object, bool) {
	if h.Files == nil {
		RespondDomainError(c, domain.UnavailableError{Store: "files"})
		return nil, false
	}
	name := services.FilePath(c.Request.URL.Query())
	obj, err := h.Files.Open(c.Request.Context(), name)
	if err != nil {
		RespondDomainError(c, err)
		return nil, false
	}
	return obj, true
}

// FileContent returns a result file as plain text.
func (h *Handler) FileContent(c *gin.Context) {
	obj, ok := h.open(c)
	if !ok {
		return
	}
	defer obj.Body.Close()
	c.DataFromReader(http.StatusOK, obj.Size, "text/plain; charset=utf-8", obj.Body, nil)
}

// Download streams a file as an attachment.
func (h *Handler) Download(c *gin.Context) {
	obj, ok := h.open(c)
	if !ok {
		return
	}
	defer obj.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": files.BaseName(obj.Name)})
	if disposition == "" {
		disposition = "attachment"
	}
	h.log().Debug("download", zap.String("file", obj.Name), zap.Int64("size", obj.Size))
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// Report renders the requested page of a view as a PDF.
func (h *Handler) Report(c *gin.Context) {
	view, err := h.view(c.Param("view"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	pdfBytes, filename, err := h.Reports.Render(c.Request.Context(), view, c.Request.URL.Query())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
