package api

import (
	"log"
	stdhttp "net/http"

	intconfig "schoolbus/internal/config"
	h "schoolbus/internal/http/handlers"
	"schoolbus/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(), middleware.Actor(env.JWTSecret))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route tidak ditemukan",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Buses (fleet + capacity ledger)
		buses := api.Group("/buses")
		buses.GET("", h.GetBuses)
		buses.GET("/:id", h.GetBusByID)
		buses.POST("", h.CreateBus)
		buses.PUT("/:id", h.UpdateBus)
		buses.DELETE("/:id", h.DeleteBus)

		// Students (read-only; penugasan diubah lewat reassignment engine)
		students := api.Group("/students")
		students.GET("", h.GetStudents)
		students.GET("/:id", h.GetStudentByID)

		// Reassignment engine
		reassignments := api.Group("/reassignments")
		reassignments.POST("/plan", h.PlanReassignment)
		reassignments.POST("", h.CreateReassignment)
		reassignments.POST("/revert", h.RevertReassignment)
		reassignments.POST("/:actionId/confirm", h.ConfirmReassignment)
		reassignments.GET("/undo-history", h.GetUndoHistory)
		reassignments.GET("/audit", h.GetReassignmentAudit)
	}

	h.SetRouter(r)
	return r
}
