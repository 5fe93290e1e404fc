// Package ports defines the interfaces the issuance orchestrator drives.
// Interfaces live here because the service, the HTTP intake and the Discord
// gateway all consume them.
package ports

import (
	"context"
	"log/slog"

	"mintgate/internal/issuance/models"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/audit"
)

// LedgerStore is the single source of truth for "has this member already
// received an artifact". Record must be an atomic insert-if-absent: the
// losing side of a concurrent duplicate gets sentinel.ErrConflict.
type LedgerStore interface {
	Has(ctx context.Context, memberID id.MemberID) (bool, error)
	Record(ctx context.Context, memberID id.MemberID) error
}

// Generator produces the artifact file and its metadata document for a
// member. Implementations must be idempotent on the filesystem so that a
// re-run for the same member after a failure is safe.
type Generator interface {
	Generate(ctx context.Context, memberID id.MemberID) (artifactPath string, err error)
	GenerateMetadata(ctx context.Context, memberID id.MemberID) error
}

// Publisher turns a local artifact file into a durably published,
// content-addressed object. Each call builds a fresh transaction; nothing
// carries over between attempts.
type Publisher interface {
	Upload(ctx context.Context, fileLocation string, tags []models.Tag) (id.TransactionID, error)
}

// Notifier delivers the one member-visible message of the pipeline.
type Notifier interface {
	NotifyArtifactReady(ctx context.Context, memberID id.MemberID, txID id.TransactionID) error
}

// AuditPublisher emits audit events for issuance lifecycle operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit is a shared helper: logs the event and forwards it to the audit
// publisher when one is configured. Audit delivery failures are logged, not
// propagated; they must never fail an issuance.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event) {
	if logger != nil {
		logger.InfoContext(ctx, string(event.Action),
			"member_id", event.MemberID,
			"stage", event.Stage,
			"tx_id", event.TransactionID,
			"reason", event.Reason,
		)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
