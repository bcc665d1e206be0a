package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appreports "github.com/opencivic/lobbyreg/internal/application/reports"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// maxReceiptBody caps the multipart receipt upload read.
const maxReceiptBody = 16 << 20

// ReportsHandler serves the quarterly expense report API.
type ReportsHandler struct {
	svc appreports.Service
}

func NewReportsHandler(svc appreports.Service) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// Register mounts the reporting routes on the API group.
func (h *ReportsHandler) Register(api *gin.RouterGroup) {
	reports := api.Group("/reports")
	{
		reports.POST("", h.File)
		reports.GET("", h.ListAll)
		reports.GET("/:reportID", h.Get)
		reports.POST("/:reportID/receipts", h.AttachReceipt)
		reports.GET("/:reportID/receipts", h.ListReceipts)
	}
	api.GET("/lobbyists/:lobbyistID/reports", h.ListForLobbyist)
	api.POST("/employer-reports", h.FileEmployerReport)
	api.GET("/employers/:employerID/reports", h.ListEmployerReports)
	api.GET("/receipts/url", h.ReceiptURL)
}

func (h *ReportsHandler) File(c *gin.Context) {
	var req appreports.FileReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	report, err := h.svc.FileReport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportsHandler) Get(c *gin.Context) {
	report, err := h.svc.GetReport(c.Request.Context(), c.Param("reportID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportsHandler) ListAll(c *gin.Context) {
	limit, offset := pagination(c)
	reports, total, err := h.svc.ListAllReports(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, reports, total, limit, offset)
}

func (h *ReportsHandler) ListForLobbyist(c *gin.Context) {
	lobbyistID := c.Param("lobbyistID")
	if quarter := c.Query("quarter"); quarter != "" {
		period, err := periodFromQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		report, err := h.svc.GetReportByPeriod(c.Request.Context(), lobbyistID, period)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}
	limit, offset := pagination(c)
	reports, total, err := h.svc.ListReports(c.Request.Context(), lobbyistID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, reports, total, limit, offset)
}

func (h *ReportsHandler) FileEmployerReport(c *gin.Context) {
	var req appreports.FileEmployerReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	report, err := h.svc.FileEmployerReport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportsHandler) ListEmployerReports(c *gin.Context) {
	limit, offset := pagination(c)
	reports, total, err := h.svc.ListEmployerReports(c.Request.Context(), c.Param("employerID"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, reports, total, limit, offset)
}

// AttachReceipt accepts a multipart upload with a "receipt" file part.
func (h *ReportsHandler) AttachReceipt(c *gin.Context) {
	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		respondError(c, errors.InvalidParam("a receipt file part is required").WithCause(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBody))
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read receipt upload"))
		return
	}

	info, err := h.svc.AttachReceipt(c.Request.Context(), appreports.AttachReceiptRequest{
		LobbyistID:  c.Query("lobbyist_id"),
		ReportID:    c.Param("reportID"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *ReportsHandler) ListReceipts(c *gin.Context) {
	receipts, err := h.svc.ListReceipts(c.Request.Context(), c.Query("lobbyist_id"), c.Param("reportID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": receipts})
}

// ReceiptURL returns a presigned download URL for a stored receipt key.
func (h *ReportsHandler) ReceiptURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		respondError(c, errors.InvalidParam("key query parameter is required"))
		return
	}
	expiry := time.Duration(queryInt(c, "expiry_seconds", 900)) * time.Second
	url, err := h.svc.ReceiptDownloadURL(c.Request.Context(), key, expiry)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in_seconds": int(expiry.Seconds())})
}
