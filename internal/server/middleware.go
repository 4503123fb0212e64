package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gekymedia/blacktask/internal/model"
	"github.com/gekymedia/blacktask/internal/service"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	userIDHeader    = "X-User-ID"
	contextUserKey  = "current_user"
)

// RequestID assigns every request a correlation id, honoring one sent
// by the client.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request")
	}
}

// identify resolves the acting user from the X-User-ID header set by
// the authenticating proxy in front of this service. Authentication
// itself is out of scope; every operation still receives the owner
// explicitly.
func (s *Server) identify(c *gin.Context) {
	raw := c.GetHeader(userIDHeader)
	id, err := strconv.ParseUint(raw, 10, 64)
	if raw == "" || err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + userIDHeader})
		return
	}

	user, err := s.users.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		s.renderError(c, err)
		c.Abort()
		return
	}

	c.Set(contextUserKey, user)
	c.Next()
}

// currentUser returns the user resolved by identify.
func currentUser(c *gin.Context) *model.User {
	return c.MustGet(contextUserKey).(*model.User)
}
