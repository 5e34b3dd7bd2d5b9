package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/core/domain"
	"go.uber.org/zap"
)

// ErrorHandler renders the last handler error as an RFC 9457 problem.
// Internal causes are logged and never sent to the client.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		problem := domain.ProblemFrom(c.Errors.Last().Err)
		if problem.Log != nil {
			logger.Error("request failed",
				zap.String("path", c.FullPath()),
				zap.Int("status", problem.Status),
				zap.Error(problem.Log),
			)
		}

		problem.Instance = c.Request.URL.Path
		c.AbortWithStatusJSON(problem.Status, problem)
	}
}
