package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-uuid"
	"go.uber.org/zap"

	"github.com/yukikurage/teamwork-api/internal/constants"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
)

const maxRequestIDLength = 128

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it
// in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			generated, err := uuid.GenerateUUID()
			if err == nil {
				id = generated
			}
		}

		c.Set(constants.ContextKeyRequestID, id)
		c.Header(constants.HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyRequestID)
}

// RequestLogger logs HTTP requests with method, path, status and duration.
// Server errors are logged with the error that caused them.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.RequestURI(),
			"status", c.Writer.Status(),
			"duration_ms", float64(dur.Microseconds()) / 1000.0,
			"request_id", GetRequestID(c),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, "user_id", userID)
		}

		if c.Writer.Status() >= 500 {
			if last := c.Errors.Last(); last != nil {
				fields = append(fields, "error", last.Err)
			}
			log.Errorw("http", fields...)
			return
		}
		log.Infow("http", fields...)
	}
}

// Recovery turns a panic into a 500 and logs it.
func Recovery(log *zap.SugaredLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorw("panic recovered",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"request_id", GetRequestID(c),
		)
		apierrors.InternalError(c, "")
	})
}
