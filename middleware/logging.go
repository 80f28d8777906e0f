package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/family-budget-api/utils"
)

// RequestLogger logs one line per request: 5xx at error, 4xx at warn.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = utils.Component(logger, "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			utils.FieldMethod, c.Request.Method,
			utils.FieldPath, c.Request.URL.Path,
			utils.FieldStatus, status,
			utils.FieldDuration, time.Since(start).Milliseconds(),
			utils.FieldClientIP, c.ClientIP(),
		}
		if userID := GetUserID(c); userID != "" {
			attrs = append(attrs, utils.FieldUserID, userID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, utils.FieldError, c.Errors.String())
		}
		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}
