// Package service contains the issuance orchestrator: it reacts to member
// join events, guarantees at most one artifact per member, and drives the
// generate → publish → record → notify pipeline on a bounded worker pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/issuance/models"
	"mintgate/internal/issuance/ports"
	"mintgate/internal/platform/metrics"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/audit"
	"mintgate/pkg/platform/sentinel"
)

const (
	defaultWorkers       = 4
	defaultQueueCapacity = 64
)

type task struct {
	memberID id.MemberID
	forced   bool
}

// Service is the issuance orchestrator. The event dispatch path only ever
// performs the ledger lookup and a non-blocking enqueue; everything slow and
// network-bound happens on the worker pool.
type Service struct {
	ledger         ports.LedgerStore
	generator      ports.Generator
	publisher      ports.Publisher
	notifier       ports.Notifier
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer

	workers int
	queue   chan task
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithWorkers sets the number of pipeline workers.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueCapacity bounds how many issuance tasks may wait for a worker.
// Joins beyond the bound are dropped (and audited); the next join event for
// the member retries naturally because no ledger row was written.
func WithQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queue = make(chan task, n)
		}
	}
}

// New constructs the orchestrator.
func New(ledger ports.LedgerStore, generator ports.Generator, publisher ports.Publisher, notifier ports.Notifier, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	s := &Service{
		ledger:    ledger,
		generator: generator,
		publisher: publisher,
		notifier:  notifier,
		logger:    slog.Default(),
		tracer:    otel.Tracer("mintgate/issuance"),
		workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = make(chan task, defaultQueueCapacity)
	}
	return s, nil
}

// Run starts the worker pool and blocks until ctx is canceled. In-flight
// pipelines are abandoned on shutdown; that is safe because no ledger row
// is written before a pipeline fully succeeds, so a restart reissues
// cleanly.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.queue:
			s.gaugeQueueDepth()
			s.issue(ctx, t)
		}
	}
}

// OnNewMember handles one join event. It consults the ledger and, for a
// first-time member, schedules the issuance pipeline. The call never blocks
// on generation, publishing or notification.
func (s *Service) OnNewMember(ctx context.Context, memberID id.MemberID) error {
	if memberID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "member id is required")
	}

	has, err := s.ledger.Has(ctx, memberID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger lookup failed")
	}
	if has {
		s.logger.InfoContext(ctx, "member already issued, ignoring join", "member_id", memberID)
		if s.metrics != nil {
			s.metrics.IssuanceDeduped.Inc()
		}
		s.emit(ctx, memberID, audit.EventIssuanceDeduped, "", "")
		return nil
	}

	s.enqueue(ctx, task{memberID: memberID})
	return nil
}

// OnSessionReady records that the event source session is established.
// Purely informational; no state changes.
func (s *Service) OnSessionReady(ctx context.Context, identity string) {
	s.logger.InfoContext(ctx, "session established", "identity", identity)
	s.emit(ctx, 0, audit.EventSessionEstablished, "", identity)
}

// ForceReissue schedules a full pipeline run bypassing the dedup check.
// Operator recovery path for members whose earlier attempt failed; if a
// record already exists the run publishes, loses the ledger write, and is
// discarded without notifying the member.
func (s *Service) ForceReissue(ctx context.Context, memberID id.MemberID) error {
	if memberID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "member id is required")
	}
	s.emit(ctx, memberID, audit.EventReissueForced, "", "")
	s.enqueue(ctx, task{memberID: memberID, forced: true})
	return nil
}

// enqueue hands the task to the worker pool without ever blocking the
// dispatch path. A full queue drops the event: no record was written, so a
// later join or forced reissue redoes the work.
func (s *Service) enqueue(ctx context.Context, t task) {
	select {
	case s.queue <- t:
		s.gaugeQueueDepth()
	default:
		s.logger.WarnContext(ctx, "issuance queue full, dropping event", "member_id", t.memberID)
		if s.metrics != nil {
			s.metrics.IssuanceDropped.Inc()
		}
		s.emit(ctx, t.memberID, audit.EventIssuanceDropped, "", "queue full")
	}
}

// issue runs one pipeline: generate, publish, record, notify — strictly in
// that order. Errors abort the attempt locally; nothing propagates to the
// dispatch path.
func (s *Service) issue(ctx context.Context, t task) {
	ctx, span := s.tracer.Start(ctx, "issuance.pipeline",
		trace.WithAttributes(attribute.String("member_id", t.memberID.String())))
	defer span.End()

	attempt := models.Attempt{
		ID:        uuid.NewString(),
		MemberID:  t.memberID,
		StartedAt: time.Now(),
	}
	if t.forced {
		s.logger.InfoContext(ctx, "running forced reissue pipeline", "member_id", t.memberID)
	}

	if s.metrics != nil {
		s.metrics.IssuanceStarted.Inc()
	}
	s.emit(ctx, t.memberID, audit.EventIssuanceStarted, "", "")

	// Metadata is best-effort: a missing config document must not cost the
	// member their artifact.
	if err := s.generator.GenerateMetadata(ctx, t.memberID); err != nil {
		s.logger.WarnContext(ctx, "metadata generation failed", "member_id", t.memberID, "error", err)
	}

	artifactPath, err := s.generator.Generate(ctx, t.memberID)
	if err != nil {
		s.fail(ctx, &attempt, "generate", err)
		return
	}
	attempt.ArtifactPath = artifactPath
	attempt.Stage = models.StageGenerated

	attempt.Stage = models.StageUploading
	txID, err := s.publisher.Upload(ctx, artifactPath, s.tags(t.memberID))
	if err != nil {
		s.fail(ctx, &attempt, "upload", err)
		return
	}
	attempt.TransactionID = txID
	attempt.Stage = models.StageUploaded
	s.emit(ctx, t.memberID, audit.EventArtifactPublished, txID, "")

	// The ledger write is the sole serialization point: it happens only
	// after a successful upload, and a conflict means a concurrent pipeline
	// already issued this member. The losing side discards quietly.
	if err := s.ledger.Record(ctx, t.memberID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.InfoContext(ctx, "lost issuance race, discarding published artifact",
				"member_id", t.memberID, "tx_id", txID)
			if s.metrics != nil {
				s.metrics.IssuanceDiscarded.Inc()
			}
			s.emit(ctx, t.memberID, audit.EventIssuanceDiscarded, txID, "ledger conflict")
			return
		}
		s.fail(ctx, &attempt, "record", err)
		return
	}

	if err := s.notifier.NotifyArtifactReady(ctx, t.memberID, txID); err != nil {
		// The artifact is published and recorded; notification is
		// best-effort and never rolls anything back.
		s.logger.ErrorContext(ctx, "member notification failed",
			"member_id", t.memberID, "tx_id", txID, "error", err)
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
		s.emit(ctx, t.memberID, audit.EventNotificationFailed, txID, err.Error())
	} else {
		attempt.Stage = models.StageNotified
		s.emit(ctx, t.memberID, audit.EventMemberNotified, txID, "")
	}

	if s.metrics != nil {
		s.metrics.IssuanceCompleted.Inc()
	}
	s.emit(ctx, t.memberID, audit.EventIssuanceCompleted, txID, "")
	s.logger.InfoContext(ctx, "issuance completed",
		"member_id", t.memberID,
		"tx_id", txID,
		"attempt_id", attempt.ID,
		"duration_ms", time.Since(attempt.StartedAt).Milliseconds(),
	)
}

func (s *Service) fail(ctx context.Context, attempt *models.Attempt, stage string, err error) {
	attempt.Stage = models.StageFailed
	s.logger.ErrorContext(ctx, "issuance attempt failed",
		"member_id", attempt.MemberID,
		"attempt_id", attempt.ID,
		"stage", stage,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.FailStage(stage)
	}
	ports.LogAudit(ctx, nil, s.auditPublisher, audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		MemberID:  attempt.MemberID,
		Action:    audit.EventIssuanceFailed,
		Stage:     stage,
		Reason:    err.Error(),
	})
}

// tags builds the descriptive tag set attached to the published
// transaction.
func (s *Service) tags(memberID id.MemberID) []models.Tag {
	return []models.Tag{
		{Name: "App-Name", Value: "mintgate"},
		{Name: "Member-Id", Value: memberID.String()},
		{Name: "Type", Value: "artifact"},
	}
}

func (s *Service) gaugeQueueDepth() {
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(len(s.queue)))
	}
}

func (s *Service) emit(ctx context.Context, memberID id.MemberID, action audit.AuditEvent, txID id.TransactionID, reason string) {
	ports.LogAudit(ctx, nil, s.auditPublisher, audit.Event{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		MemberID:      memberID,
		Action:        action,
		TransactionID: txID,
		Reason:        reason,
	})
}
