package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apphours "github.com/opencivic/lobbyreg/internal/application/hours"
	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// HoursHandler serves the hour-log API.
type HoursHandler struct {
	svc apphours.Service
}

func NewHoursHandler(svc apphours.Service) *HoursHandler {
	return &HoursHandler{svc: svc}
}

// Register mounts the hour-log routes on the API group.
func (h *HoursHandler) Register(api *gin.RouterGroup) {
	hours := api.Group("/lobbyists/:lobbyistID/hours")
	{
		hours.POST("", h.Log)
		hours.GET("", h.List)
		hours.GET("/summary", h.Summary)
	}
	api.POST("/exemptions/check", h.CheckExemption)
}

// CheckExemption evaluates the ordinance registration exemptions against
// the declared circumstances in the request body.
func (h *HoursHandler) CheckExemption(c *gin.Context) {
	var req apphours.CheckExemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	result, err := h.svc.CheckExemption(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HoursHandler) Log(c *gin.Context) {
	var req apphours.LogHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	req.LobbyistID = c.Param("lobbyistID")
	result, err := h.svc.LogHours(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *HoursHandler) List(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, offset := pagination(c)
	logs, total, err := h.svc.ListLogs(c.Request.Context(), c.Param("lobbyistID"), period, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, logs, total, limit, offset)
}

func (h *HoursHandler) Summary(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.svc.Summary(c.Request.Context(), c.Param("lobbyistID"), period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// periodFromQuery reads quarter/year query parameters, defaulting to the
// current reporting period.
func periodFromQuery(c *gin.Context) (compliance.Period, error) {
	quarter := c.Query("quarter")
	year := queryInt(c, "year", 0)
	if quarter == "" && year == 0 {
		return compliance.PeriodOf(time.Now()), nil
	}
	if quarter == "" || year == 0 {
		return compliance.Period{}, errors.InvalidParam("quarter and year must be provided together")
	}
	return compliance.NewPeriod(quarter, year)
}
