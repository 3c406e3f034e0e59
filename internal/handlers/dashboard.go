package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/opencampus-io/registrar-backend/internal/services"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (dh *DashboardHandler) Profile(c *gin.Context) {
	user, err := dh.dashboardService.Profile(c.Request.Context(), callerFrom(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, toUserView(user))
}

func (dh *DashboardHandler) Dashboard(c *gin.Context) {
	dashboard, err := dh.dashboardService.Dashboard(c.Request.Context(), callerFrom(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, dashboard)
}
