package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/gateway-analytics-api/pkg/api"
	"go.uber.org/zap"
)

const problemContentType = "application/problem+json"

// ErrorHandler renders the last error attached by a handler as an RFC 9457
// problem document.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if !errors.As(err, &problem) {
			logger.Error("Unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(err))
			problem = api.InternalError(err)
		} else if problem.Log != nil {
			logger.Warn("Request failed",
				zap.Int("status", problem.Status),
				zap.String("path", c.Request.URL.Path),
				zap.Error(problem.Log),
			)
		}

		WriteProblem(c, problem)
	}
}

// WriteProblem aborts the request with p as the response body.
func WriteProblem(c *gin.Context, p *api.Problem) {
	if p.RetryAfter > 0 {
		c.Header("Retry-After", p.RetryAfterHeader())
	}
	if p.Status == 0 {
		p.Status = http.StatusInternalServerError
	}
	// gin only sets Content-Type when it is still empty
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(p.Status, p)
}
