package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/requestdata"
	"github.com/opencampus-io/registrar-backend/internal/services"
)

// callerFrom rebuilds the service-layer caller from the request context set
// by the auth middleware.
func callerFrom(c *gin.Context) services.Caller {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return services.Caller{}
	}
	return services.Caller{ID: rd.UserID, Role: rd.Role}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, 400, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}
