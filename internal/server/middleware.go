package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
)

const headerRequestID = "X-Request-ID"

// requestID reuses an incoming X-Request-ID or mints one, and puts it on the
// request context together with a tagged logger.
func requestID(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(headerRequestID, id)

		ctx := common.WithRequestID(c.Request.Context(), id)
		ctx = common.WithLogger(ctx, logger.With(zap.String("request_id", id)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// accessLog writes one line per request, at error level when handlers recorded errors.
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", common.RequestIDFromContext(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
			logger.Error("http.request", fields...)
			return
		}
		if strings.HasPrefix(path, "/healthz") {
			logger.Debug("http.request", fields...)
			return
		}
		logger.Info("http.request", fields...)
	}
}
