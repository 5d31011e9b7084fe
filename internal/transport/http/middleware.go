package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	actorKey        = "actor"
)

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (app.Actor, error)
}

// RequestLogger tags every request with an id and a request-scoped logrus entry.
func RequestLogger(base *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		log := base.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), log))
		c.Header(requestIDHeader, requestID)

		c.Next()

		log = logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"status":      c.Writer.Status(),
			"size":        c.Writer.Size(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request completed with server error")
		case status >= http.StatusBadRequest:
			log.Warn("request completed with client error")
		default:
			log.Info("request completed")
		}
	}
}

// Recovery turns a panic into a generic 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.FromContext(c.Request.Context()).WithField("panic", fmt.Sprint(rec)).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: serverErrorMessage})
	})
}

// RequireAuth rejects requests without a valid bearer token and stores the caller.
func RequireAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			writeError(c, domain.ErrUnauthorized)
			return
		}
		actor, err := authn.Authenticate(c.Request.Context(), raw)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(actorKey, actor)
		log := logger.FromContext(c.Request.Context()).WithField("user_id", actor.UserID)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), log))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func actorFrom(c *gin.Context) app.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(app.Actor); ok {
			return actor
		}
	}
	return app.Actor{}
}
