package middleware

import (
	"fmt"
	"net/http"
	"time"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID is set by handlers to the id of the row a write produced.
const CtxAuditResourceID = "audit_resource_id"

type auditRoute struct {
	table     string
	actorType string
}

// auditedRoutes maps registered route patterns to the table they write.
var auditedRoutes = map[string]auditRoute{
	"POST /api/v1/merchants":                {"merchants", domain.ActorCustomer},
	"POST /api/v1/payments/initialize":      {"transactions", domain.ActorMerchant},
	"POST /api/v1/payments/:reference/pay":  {"transactions", domain.ActorCustomer},
	"POST /api/v1/payments/card-settlement": {"transactions", domain.ActorProcessor},
	"POST /api/v1/payouts":                  {"payouts", domain.ActorMerchant},
}

// AuditLog records successful write operations. Failures are audited by the
// services that detect them.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route, ok := mapRouteToTable(c.Request.Method, c.FullPath())
		if !ok {
			return
		}

		entry := domain.AuditLog{
			ID:        uuid.New(),
			EventType: domain.AuditEventHTTPWrite,
			DBTable:   route.table,
			Status:    domain.AuditStatusSuccess,
			Context: map[string]any{
				"method":    c.Request.Method,
				"path":      c.Request.URL.Path,
				"status":    status,
				"client_ip": c.ClientIP(),
			},
			ActorType: &route.actorType,
			CreatedAt: time.Now().UTC(),
		}
		if id := c.GetString(CtxAuditResourceID); id != "" {
			entry.TableID = &id
		}
		if mid, exists := c.Get(CtxMerchantID); exists {
			actorID := fmt.Sprintf("%v", mid)
			entry.ActorID = &actorID
		}
		if rid := c.GetString(CtxRequestID); rid != "" {
			entry.TraceID = &rid
		}

		auditSvc.Record(c.Request.Context(), entry)
	}
}

func mapRouteToTable(method, fullPath string) (auditRoute, bool) {
	route, ok := auditedRoutes[method+" "+fullPath]
	return route, ok
}
