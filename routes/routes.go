package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/xAleksandar/tonight-app-sub000/handlers"
	"github.com/xAleksandar/tonight-app-sub000/services"
)

// SetupCoordinationRoutes wires the event coordination engine onto the
// driver surface.
func SetupCoordinationRoutes(rg *gin.RouterGroup, coordinator *services.EventCoordinator) {
	h := &handlers.CoordinationHandler{Coordinator: coordinator}

	rg.GET("/coordination", h.State)
	rg.POST("/coordination/refresh", h.Refresh)

	rg.POST("/coordination/join-requests/:id/decision", h.Decide)

	rg.GET("/coordination/feed", h.Feed)
	rg.POST("/coordination/feed/earlier", h.LoadEarlier)
	rg.POST("/coordination/feed/ack", h.Acknowledge)
	rg.POST("/coordination/feed/return-to-top", h.ReturnToTop)
	rg.PUT("/coordination/feed/viewport", h.Viewport)

	rg.POST("/coordination/announcements", h.Announce)

	rg.GET("/coordination/invites/candidates", h.Candidates)
	rg.GET("/coordination/invites/skipped", h.SkippedHistory)
	rg.POST("/coordination/invites/:id/select", h.Select)
	rg.DELETE("/coordination/invites/:id/select", h.Deselect)
	rg.POST("/coordination/invites/:id/override", h.Override)
	rg.POST("/coordination/invites/dispatch", h.Dispatch)
}
