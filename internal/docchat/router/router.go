// Package router provides docchat service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/utils/response"
)

// Register registers the docchat service routes.
func Register(engine *gin.Engine, documents *handler.DocumentHandler, chat *handler.ChatHandler, health *handler.HealthHandler) {
	logger.Info("Registering docchat routes...")

	// Operational endpoints stay outside the API prefix so probes and
	// scrapers do not depend on the API version.
	engine.GET("/healthz", health.Healthz)
	engine.GET("/metrics", health.Metrics)

	engine.NoRoute(func(c *gin.Context) {
		resp := response.Err(errors.ErrNotFound.WithMessage("route not found"))
		c.JSON(resp.HTTPStatus(), resp)
		response.Release(resp)
	})

	api := engine.Group("/api/v1")
	{
		documentsGroup := api.Group("/documents")
		{
			documentsGroup.POST("", documents.Upload)
			documentsGroup.GET("", documents.List)
			documentsGroup.GET("/:id", documents.Get)
			documentsGroup.DELETE("/:id", documents.Delete)
		}

		sessions := api.Group("/chat/sessions")
		{
			sessions.POST("", chat.StartSession)
			sessions.GET("", chat.ListSessions)
			sessions.DELETE("/:id", chat.DeleteSession)
			sessions.GET("/:id/messages", chat.History)
			sessions.POST("/:id/messages", chat.Chat)
		}

		// Stats endpoint
		api.GET("/stats", health.Stats)
	}

	logger.Info("HTTP routes registered")
}
