package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appanalytics "github.com/opencivic/lobbyreg/internal/application/analytics"
)

// AnalyticsHandler serves the compliance dashboard and spending analytics.
type AnalyticsHandler struct {
	svc appanalytics.Service
}

func NewAnalyticsHandler(svc appanalytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Register mounts the analytics routes on the API group.
func (h *AnalyticsHandler) Register(api *gin.RouterGroup) {
	analytics := api.Group("/analytics")
	{
		analytics.GET("/overview", h.Overview)
		analytics.GET("/spending", h.Spending)
	}
}

func (h *AnalyticsHandler) Overview(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *AnalyticsHandler) Spending(c *gin.Context) {
	report, err := h.svc.Spending(c.Request.Context(),
		queryInt(c, "from_year", 0),
		queryInt(c, "to_year", 0),
		queryInt(c, "top", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
