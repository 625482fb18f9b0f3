package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"occupancy-status-backend/config"
	"occupancy-status-backend/internal/mw"
	"occupancy-status-backend/internal/ws"
)

// NewRouter creates and configures a new Gin router. ctx bounds the lifetime
// of the rate limiter's background pruning.
func NewRouter(ctx context.Context, cfg *config.ServerConfig, handler *Handler, hub *ws.Hub) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(ctx, rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rooms", caching, handler.GetRooms)
		api.POST("/rooms", handler.PostRoom)
		api.DELETE("/rooms", handler.DeleteRooms)

		api.GET("/rooms/:id", handler.GetRoom)
		api.PUT("/rooms/:id", handler.PutRoom)
		api.DELETE("/rooms/:id", handler.DeleteRoom)

		api.GET("/rooms/:id/occupancies", handler.GetRoomOccupancies)
		api.POST("/rooms/:id/occupancies", handler.PostRoomOccupancy)
		api.DELETE("/rooms/:id/occupancies", handler.DeleteRoomOccupancies)

		api.GET("/occupancies", handler.GetOccupancies)
		api.DELETE("/occupancies", handler.DeleteOccupancies)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	// Websocket clients bypass the response cache; rate limiting still applies
	// to the upgrade request.
	r.GET("/ws", rateLimiter, func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})

	return r
}
