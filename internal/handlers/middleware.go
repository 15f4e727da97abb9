package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

const (
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
	headerRequestID = "X-Request-Id"

	actorKey     = "actor"
	requestIDKey = "request_id"
)

// Identity trusts the caller identity forwarded by the gateway.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(headerUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error:   "unauthenticated",
				Message: "missing " + headerUserID + " header",
			})
			return
		}
		c.Set(actorKey, orders.Actor{
			UserID: userID,
			Admin:  strings.EqualFold(strings.TrimSpace(c.GetHeader(headerUserRole)), "admin"),
		})
		c.Next()
	}
}

func actorFrom(c *gin.Context) orders.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(orders.Actor)
	return a
}

// RequestLogger writes one access log line per request and echoes the request id.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header(headerRequestID, reqID)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": reqID,
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
