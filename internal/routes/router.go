package routes

import (
	"time"

	"todolist/internal/controller"
	"todolist/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Router(h *controller.Handler, requestTimeout time.Duration) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())

	// Health for load balancers and K8s probes
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	api.Use(middleware.Timeout(requestTimeout))
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)

		api.POST("/todos", h.CreateTodo)
		api.GET("/todos/user/:userId", h.ListTodos)
		api.GET("/todos/:id", h.GetTodo)
		api.PUT("/todos/:id", h.UpdateTodo)
		api.DELETE("/todos/:id", h.DeleteTodo)
	}

	return router
}
