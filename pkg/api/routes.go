package api

import (
	"github.com/labstack/echo/v4"

	"stylegenie/pkg/metrics"
)

// RegisterRoutes wires every endpoint onto e.
func RegisterRoutes(e *echo.Echo, h *Handlers, reg *metrics.Registry) {
	e.GET("/health", h.Health)
	e.GET("/metrics", reg.EchoHandlerText)
	e.GET("/metrics.json", reg.EchoHandlerJSON)

	v1 := e.Group("/api/v1")

	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions/:id", h.GetSession)
	v1.DELETE("/sessions/:id", h.DeleteSession)
	v1.POST("/sessions/:id/messages", h.PostMessage)
	v1.POST("/sessions/:id/quick-replies", h.PostQuickReply)

	v1.POST("/images", h.UploadImage)

	v1.GET("/marketplaces", h.ListMarketplaces)
	v1.POST("/marketplaces", h.AddMarketplace)
	v1.PATCH("/marketplaces/:id", h.ToggleMarketplace)
	v1.DELETE("/marketplaces/:id", h.RemoveMarketplace)

	v1.POST("/search", h.Search)
	v1.GET("/ateliers", h.ListAteliers)
}
