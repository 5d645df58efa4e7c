package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/pkg/middleware/requestid"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditTrail struct {
	Route     string `json:"route"`
	Method    string `json:"method"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	RequestID string `json:"request_id,omitempty"`
}

// Audit writes one audit row per successful request on the route. Failed requests and
// anonymous callers are skipped. The :id path parameter becomes the resource id.
func Audit(repo auditWriter, logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		claims := currentClaims(c)
		if repo == nil || claims == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			UserID:    &claims.UserID,
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.NewValues, _ = json.Marshal(auditTrail{
			Route:     c.FullPath(),
			Method:    c.Request.Method,
			Status:    c.Writer.Status(),
			LatencyMs: time.Since(started).Milliseconds(),
			RequestID: requestid.Value(c),
		})

		if err := repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.Warn("failed to record audit log",
				zap.String("action", action),
				zap.String("user_id", claims.UserID),
				zap.Error(err))
		}
	}
}
