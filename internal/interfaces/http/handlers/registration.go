package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencivic/lobbyreg/internal/application/registration"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// RegistrationHandler serves the lobbyist and employer registration API.
type RegistrationHandler struct {
	svc registration.Service
}

func NewRegistrationHandler(svc registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Register mounts the registration routes on the API group.
func (h *RegistrationHandler) Register(api *gin.RouterGroup) {
	lobbyists := api.Group("/lobbyists")
	{
		lobbyists.POST("", h.Create)
		lobbyists.GET("", h.List)
		lobbyists.GET("/:lobbyistID", h.Get)
		lobbyists.POST("/:lobbyistID/resubmit", h.Resubmit)
		lobbyists.POST("/:lobbyistID/review", h.Review)
	}
	employers := api.Group("/employers")
	{
		employers.POST("", h.CreateEmployer)
		employers.GET("", h.ListEmployers)
		employers.GET("/:employerID", h.GetEmployer)
	}
}

func (h *RegistrationHandler) Create(c *gin.Context) {
	var req registration.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	lobbyist, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lobbyist)
}

func (h *RegistrationHandler) Get(c *gin.Context) {
	lobbyist, err := h.svc.Get(c.Request.Context(), c.Param("lobbyistID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lobbyist)
}

func (h *RegistrationHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	lobbyists, total, err := h.svc.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, lobbyists, total, limit, offset)
}

type resubmitRequest struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
}

func (h *RegistrationHandler) Resubmit(c *gin.Context) {
	var req resubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	lobbyist, err := h.svc.Resubmit(c.Request.Context(), c.Param("lobbyistID"), req.Name, req.Organization)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lobbyist)
}

func (h *RegistrationHandler) Review(c *gin.Context) {
	var req registration.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	req.LobbyistID = c.Param("lobbyistID")
	lobbyist, err := h.svc.Review(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lobbyist)
}

type createEmployerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *RegistrationHandler) CreateEmployer(c *gin.Context) {
	var req createEmployerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	employer, err := h.svc.CreateEmployer(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, employer)
}

func (h *RegistrationHandler) GetEmployer(c *gin.Context) {
	employer, err := h.svc.GetEmployer(c.Request.Context(), c.Param("employerID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employer)
}

func (h *RegistrationHandler) ListEmployers(c *gin.Context) {
	limit, offset := pagination(c)
	employers, total, err := h.svc.ListEmployers(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, http.StatusOK, employers, total, limit, offset)
}
