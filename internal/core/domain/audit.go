package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusInfo    AuditStatus = "info"
)

// AuditEvent names the operation being audited.
type AuditEvent string

const (
	AuditEventRegisterMerchant   AuditEvent = "register_merchant"
	AuditEventInitializePayment  AuditEvent = "initialize_payment"
	AuditEventCapturePayment     AuditEvent = "capture_payment"
	AuditEventSettleCardPayment  AuditEvent = "settle_card_payment"
	AuditEventRequestPayout      AuditEvent = "request_payout"
	AuditEventPayoutCompensation AuditEvent = "payout_compensation"
	AuditEventStaffLogin         AuditEvent = "staff_login"
	AuditEventHTTPWrite          AuditEvent = "http_write"
)

// Actor types.
const (
	ActorMerchant  = "merchant"
	ActorCustomer  = "customer"
	ActorProcessor = "processor"
	ActorStaff     = "staff"
)

// AuditLog is a write-once record of an attempted change.
type AuditLog struct {
	ID               uuid.UUID      `json:"id"`
	EventType        AuditEvent     `json:"event_type"`
	DBTable          string         `json:"db_table"`
	TableID          *string        `json:"table_id,omitempty"`
	Status           AuditStatus    `json:"status"`
	AttemptedChanges map[string]any `json:"attempted_changes,omitempty"`
	ErrorMessage     *string        `json:"error_message,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
	ActorType        *string        `json:"actor_type,omitempty"`
	ActorID          *string        `json:"actor_id,omitempty"`
	TraceID          *string        `json:"trace_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
