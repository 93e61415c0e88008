package httptransport

import (
	"log/slog"

	"github.com/erzhanbek/hooksched/internal/transport/http/handler"
	"github.com/erzhanbek/hooksched/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, jobHandler *handler.JobHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	jobs := r.Group("/jobs")
	jobs.POST("", jobHandler.Create)
	jobs.GET("", jobHandler.List)
	jobs.GET("/:id", jobHandler.GetByID)
	jobs.DELETE("/:id", jobHandler.Delete)
	jobs.DELETE("", jobHandler.DeleteAll)

	return r
}
