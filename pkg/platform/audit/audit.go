package audit

import (
	"time"

	id "mintgate/pkg/domain"
)

// Event is emitted from domain logic to capture key actions in the issuance
// pipeline. Keep it transport-agnostic so sinks (log, Kafka) can fan out.
type Event struct {
	ID            string           `json:"id"`
	Timestamp     time.Time        `json:"timestamp"`
	MemberID      id.MemberID      `json:"member_id"`
	Action        AuditEvent       `json:"action"`
	Stage         string           `json:"stage,omitempty"`
	TransactionID id.TransactionID `json:"tx_id,omitempty"`
	Reason        string           `json:"reason,omitempty"`
}

type AuditEvent string

const (
	// Issuance lifecycle
	EventIssuanceStarted   AuditEvent = "issuance_started"
	EventIssuanceDeduped   AuditEvent = "issuance_deduped"
	EventIssuanceCompleted AuditEvent = "issuance_completed"
	EventIssuanceFailed    AuditEvent = "issuance_failed"
	EventIssuanceDiscarded AuditEvent = "issuance_discarded"
	EventIssuanceDropped   AuditEvent = "issuance_dropped"

	// Publish lifecycle
	EventArtifactPublished AuditEvent = "artifact_published"

	// Notification
	EventMemberNotified     AuditEvent = "member_notified"
	EventNotificationFailed AuditEvent = "notification_failed"
	EventReissueForced      AuditEvent = "reissue_forced"
	EventSessionEstablished AuditEvent = "session_established"
)
