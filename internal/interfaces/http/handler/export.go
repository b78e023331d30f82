package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/infrastructure/export"
)

// ExportHandler renders the session's filtered order list as a file
type ExportHandler struct {
	BaseHandler
	sessions *dashboard.SessionManager
	exports  *dashboard.ExportService
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(sessions *dashboard.SessionManager, exports *dashboard.ExportService) *ExportHandler {
	return &ExportHandler{sessions: sessions, exports: exports}
}

// Export godoc
//
//	@ID				exportOrders
//	@Summary		Export the filtered order list
//	@Description	Streams the file, or returns a download link when exports are archived to object storage.
//	@Tags			export
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Produce		application/pdf
//	@Produce		json
//	@Param			format	path		string	true	"Export format"	Enums(excel, pdf)
//	@Success		200		{file}		binary
//	@Success		201		{object}	Envelope[dashboard.ExportResult]
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		503		{object}	ErrorEnvelope
//	@Failure		504		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/export/{format} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	res, err := h.exports.Export(c.Request.Context(), sess, export.Format(c.Param("format")))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if res.URL != "" {
		h.Created(c, res)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	c.Header("X-Export-Rows", strconv.Itoa(res.Rows))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}
