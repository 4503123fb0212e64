// Package server is the HTTP surface over the task engine. It stays
// thin: bind, call the service, map errors to status codes.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gekymedia/blacktask/internal/service"
)

// Server holds the handler dependencies.
type Server struct {
	tasks      *service.TaskService
	categories *service.CategoryService
	users      service.UserStore
	log        *logrus.Logger
}

func New(tasks *service.TaskService, categories *service.CategoryService, users service.UserStore, log *logrus.Logger) *Server {
	registerValidations()
	return &Server{tasks: tasks, categories: categories, users: users, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/", s.identify)

	tasks := authed.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/overdue", s.handleOverdueTasks)
		tasks.GET("/upcoming", s.handleUpcomingTasks)
		tasks.PATCH("/:id", s.handleUpdateTask)
		tasks.PATCH("/:id/toggle", s.handleToggleTask)
		tasks.POST("/:id/reschedule", s.handleRescheduleTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
	}

	categories := authed.Group("/categories")
	{
		categories.GET("", s.handleListCategories)
		categories.POST("", s.handleCreateCategory)
		categories.DELETE("/:id", s.handleDeleteCategory)
	}

	authed.GET("/stats", s.handleStatistics)
	authed.GET("/analytics/categories", s.handleCategoryBreakdown)
	authed.GET("/calendar/events", s.handleCalendarEvents)
	authed.PATCH("/settings/notifications", s.handleUpdateNotificationSettings)

	return r
}

// renderError maps service errors to HTTP responses.
func (s *Server) renderError(c *gin.Context, err error) {
	if verrs, ok := service.AsValidationErrors(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verrs})
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidOwnership):
		c.JSON(http.StatusForbidden, gin.H{"error": "resource does not belong to user"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		s.log.WithField("request_id", c.GetString(requestIDKey)).
			WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
}
