package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the public API on router.
func RegisterRoutes(router gin.IRouter, svc *Service) {
	router.GET("/", RootHandler())
	router.GET("/health", HealthHandler(svc))
	router.POST("/api/manual-refresh", ManualRefreshHandler(svc))
	router.GET("/api/scheduler/status", SchedulerStatusHandler(svc))

	posts := router.Group("/api/posts")
	posts.GET("/next", NextPostHandler(svc))
	posts.GET("/stats", StatsHandler(svc))
	posts.POST("/refresh", RefreshHandler(svc))
	posts.POST("/:post_id/mark-displayed", MarkDisplayedHandler(svc))

	handles := router.Group("/api/handles")
	handles.GET("", ListHandlesHandler(svc))
	handles.POST("", CreateHandleHandler(svc))
	handles.PUT("/:id", UpdateHandleHandler(svc))
	handles.DELETE("/:id", DeleteHandleHandler(svc))
	handles.PATCH("/:id/toggle", ToggleHandleHandler(svc))
}

// CorsConfig allows the configured frontend and the usual local dev servers.
func CorsConfig(frontendUrl string) cors.Config {
	config := cors.DefaultConfig()
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if frontendUrl != "" && frontendUrl != origins[0] && frontendUrl != origins[1] {
		origins = append([]string{frontendUrl}, origins...)
	}
	config.AllowOrigins = origins
	config.AllowCredentials = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"*"}
	return config
}
