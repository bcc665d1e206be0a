package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appenf "github.com/opencivic/lobbyreg/internal/application/enforcement"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// EnforcementHandler serves the violation and appeal API.
type EnforcementHandler struct {
	svc appenf.Service
}

func NewEnforcementHandler(svc appenf.Service) *EnforcementHandler {
	return &EnforcementHandler{svc: svc}
}

// Register mounts the enforcement routes on the API group.
func (h *EnforcementHandler) Register(api *gin.RouterGroup) {
	violations := api.Group("/violations")
	{
		violations.POST("", h.Issue)
		violations.GET("", h.List)
		violations.GET("/summary", h.Summary)
		violations.GET("/:violationID", h.Get)
		violations.PUT("/:violationID/fine", h.UpdateFine)
		violations.POST("/:violationID/resolve", h.Resolve)
		violations.POST("/:violationID/appeal", h.FileAppeal)
	}
	appeals := api.Group("/appeals")
	{
		appeals.GET("", h.ListAppeals)
		appeals.GET("/:appealID", h.GetAppeal)
		appeals.POST("/:appealID/decision", h.DecideAppeal)
	}
}

func (h *EnforcementHandler) Issue(c *gin.Context) {
	var req appenf.IssueViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	violation, err := h.svc.IssueViolation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, violation)
}

func (h *EnforcementHandler) Get(c *gin.Context) {
	violation, err := h.svc.GetViolation(c.Request.Context(), c.Param("violationID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, violation)
}

func (h *EnforcementHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	violations, total, err := h.svc.ListViolations(c.Request.Context(), c.Query("lobbyist_id"), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, violations, total, limit, offset)
}

func (h *EnforcementHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type updateFineRequest struct {
	FineAmount decimal.Decimal `json:"fine_amount"`
}

func (h *EnforcementHandler) UpdateFine(c *gin.Context) {
	var req updateFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	violation, err := h.svc.UpdateFine(c.Request.Context(), c.Param("violationID"), req.FineAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, violation)
}

type resolveRequest struct {
	Status string `json:"status"`
}

func (h *EnforcementHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	violation, err := h.svc.ResolveViolation(c.Request.Context(), c.Param("violationID"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, violation)
}

func (h *EnforcementHandler) FileAppeal(c *gin.Context) {
	var req appenf.FileAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	req.ViolationID = c.Param("violationID")
	appeal, err := h.svc.FileAppeal(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appeal)
}

func (h *EnforcementHandler) GetAppeal(c *gin.Context) {
	appeal, err := h.svc.GetAppeal(c.Request.Context(), c.Param("appealID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}

func (h *EnforcementHandler) ListAppeals(c *gin.Context) {
	limit, offset := pagination(c)
	appeals, total, err := h.svc.ListAppeals(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, appeals, total, limit, offset)
}

func (h *EnforcementHandler) DecideAppeal(c *gin.Context) {
	var req appenf.DecideAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	req.AppealID = c.Param("appealID")
	appeal, err := h.svc.DecideAppeal(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}
