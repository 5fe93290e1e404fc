package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mintgate/internal/issuance/store/ledger"
	"mintgate/internal/platform/metrics"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/audit"
)

// captureAudit records emitted audit events so async pipelines can be
// observed without sleeping.
type captureAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAudit) Emit(_ context.Context, event audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureAudit) count(action audit.AuditEvent) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	ledger    *ledger.MemoryStore
	generator *MockGenerator
	publisher *MockPublisher
	notifier  *MockNotifier
	audit     *captureAudit
	service   *Service

	cancel context.CancelFunc
	done   chan struct{}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = ledger.NewMemory()
	s.generator = NewMockGenerator(s.ctrl)
	s.publisher = NewMockPublisher(s.ctrl)
	s.notifier = NewMockNotifier(s.ctrl)
	s.audit = &captureAudit{}

	var err error
	s.service, err = New(s.ledger, s.generator, s.publisher, s.notifier,
		WithWorkers(2),
		WithQueueCapacity(16),
		WithAuditPublisher(s.audit),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
}

// startWorkers runs the pool in the background. Tests that want to stage
// multiple events before any pipeline runs call it after enqueuing.
func (s *ServiceSuite) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = s.service.Run(ctx)
	}()
}

func (s *ServiceSuite) eventually(cond func() bool) {
	s.Require().Eventually(cond, 2*time.Second, 5*time.Millisecond)
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil ledger returns error", func() {
		_, err := New(nil, s.generator, s.publisher, s.notifier)
		s.ErrorContains(err, "ledger store is required")
	})
	s.Run("nil generator returns error", func() {
		_, err := New(s.ledger, nil, s.publisher, s.notifier)
		s.ErrorContains(err, "generator is required")
	})
	s.Run("nil publisher returns error", func() {
		_, err := New(s.ledger, s.generator, nil, s.notifier)
		s.ErrorContains(err, "publisher is required")
	})
	s.Run("nil notifier returns error", func() {
		_, err := New(s.ledger, s.generator, s.publisher, nil)
		s.ErrorContains(err, "notifier is required")
	})
}

func (s *ServiceSuite) TestFirstJoinIssuesArtifact() {
	ctx := context.Background()
	memberID := id.MemberID(42)
	txID := id.TransactionID("tx_abc123")

	s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil)
	s.generator.EXPECT().Generate(gomock.Any(), memberID).Return("/gen/42.png", nil)
	s.publisher.EXPECT().Upload(gomock.Any(), "/gen/42.png", gomock.Any()).Return(txID, nil)
	s.notifier.EXPECT().NotifyArtifactReady(gomock.Any(), memberID, txID).Return(nil)

	s.startWorkers()
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))

	s.eventually(func() bool {
		has, err := s.ledger.Has(ctx, memberID)
		return err == nil && has
	})
	s.eventually(func() bool { return s.audit.count(audit.EventMemberNotified) == 1 })
	s.Equal(1, s.audit.count(audit.EventIssuanceCompleted))
}

func (s *ServiceSuite) TestSecondJoinIsNoOp() {
	ctx := context.Background()
	memberID := id.MemberID(42)
	s.Require().NoError(s.ledger.Record(ctx, memberID))

	// No expectations on generator, publisher or notifier: any call would
	// fail the test.
	s.startWorkers()
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))

	s.eventually(func() bool { return s.audit.count(audit.EventIssuanceDeduped) == 1 })
	s.Equal(0, s.audit.count(audit.EventIssuanceStarted))
}

func (s *ServiceSuite) TestGenerationFailureWritesNoRecord() {
	ctx := context.Background()
	memberID := id.MemberID(42)

	s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil)
	s.generator.EXPECT().Generate(gomock.Any(), memberID).
		Return("", dErrors.New(dErrors.CodeGeneration, "render failed"))

	s.startWorkers()
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))

	s.eventually(func() bool { return s.audit.count(audit.EventIssuanceFailed) == 1 })

	has, err := s.ledger.Has(ctx, memberID)
	s.Require().NoError(err)
	s.False(has, "a failed generation must not leave a ledger record")
}

func (s *ServiceSuite) TestUploadFailureWritesNoRecord() {
	ctx := context.Background()
	memberID := id.MemberID(42)

	s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil)
	s.generator.EXPECT().Generate(gomock.Any(), memberID).Return("/gen/42.png", nil)
	s.publisher.EXPECT().Upload(gomock.Any(), "/gen/42.png", gomock.Any()).
		Return(id.TransactionID(""), dErrors.New(dErrors.CodePublish, "gateway down"))

	s.startWorkers()
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))

	s.eventually(func() bool { return s.audit.count(audit.EventIssuanceFailed) == 1 })

	has, err := s.ledger.Has(ctx, memberID)
	s.Require().NoError(err)
	s.False(has, "a failed upload must not leave a ledger record")
}

func (s *ServiceSuite) TestNotificationFailureKeepsRecord() {
	ctx := context.Background()
	memberID := id.MemberID(42)
	txID := id.TransactionID("tx_abc123")

	s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil)
	s.generator.EXPECT().Generate(gomock.Any(), memberID).Return("/gen/42.png", nil)
	s.publisher.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Return(txID, nil)
	s.notifier.EXPECT().NotifyArtifactReady(gomock.Any(), memberID, txID).
		Return(dErrors.New(dErrors.CodeUnavailable, "dm channel closed"))

	s.startWorkers()
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))

	s.eventually(func() bool { return s.audit.count(audit.EventNotificationFailed) == 1 })

	// The artifact is published and recorded; notification failure never
	// rolls that back.
	has, err := s.ledger.Has(ctx, memberID)
	s.Require().NoError(err)
	s.True(has)
	s.Equal(1, s.audit.count(audit.EventIssuanceCompleted))
}

func (s *ServiceSuite) TestStageOrder() {
	ctx := context.Background()
	memberID := id.MemberID(42)
	txID := id.TransactionID("tx_abc123")

	metadata := s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil)
	generate := s.generator.EXPECT().Generate(gomock.Any(), memberID).Return("/gen/42.png", nil)
	upload := s.publisher.EXPECT().Upload(gomock.Any(), "/gen/42.png", gomock.Any()).Return(txID, nil)
	notify := s.notifier.EXPECT().NotifyArtifactReady(gomock.Any(), memberID, txID).
		DoAndReturn(func(ctx context.Context, _ id.MemberID, _ id.TransactionID) error {
			// The ledger write precedes notification.
			has, err := s.ledger.Has(ctx, memberID)
			s.NoError(err)
			s.True(has, "record must exist before the member is notified")
			return nil
		})
	gomock.InOrder(metadata, generate, upload, notify)

	s.startWorkers()
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))
	s.eventually(func() bool { return s.audit.count(audit.EventIssuanceCompleted) == 1 })
}

// TestConcurrentJoinsIssueOnce stages two pipelines for the same unseen
// member before any worker runs, forcing both past the dedup check. Exactly
// one may record and notify; the other must discard quietly.
func (s *ServiceSuite) TestConcurrentJoinsIssueOnce() {
	ctx := context.Background()
	memberID := id.MemberID(42)

	s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil).Times(2)
	s.generator.EXPECT().Generate(gomock.Any(), memberID).Return("/gen/42.png", nil).Times(2)
	s.publisher.EXPECT().Upload(gomock.Any(), "/gen/42.png", gomock.Any()).
		Return(id.TransactionID("tx_abc123"), nil)
	s.publisher.EXPECT().Upload(gomock.Any(), "/gen/42.png", gomock.Any()).
		Return(id.TransactionID("tx_def456"), nil)
	s.notifier.EXPECT().NotifyArtifactReady(gomock.Any(), memberID, gomock.Any()).Return(nil)

	// Both events pass the ledger check while no worker is draining.
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))
	s.Require().NoError(s.service.OnNewMember(ctx, memberID))
	s.startWorkers()

	s.eventually(func() bool {
		return s.audit.count(audit.EventIssuanceCompleted) == 1 &&
			s.audit.count(audit.EventIssuanceDiscarded) == 1
	})
	s.Equal(1, s.audit.count(audit.EventMemberNotified))
}

func (s *ServiceSuite) TestForceReissueBypassesDedup() {
	ctx := context.Background()
	memberID := id.MemberID(42)
	s.Require().NoError(s.ledger.Record(ctx, memberID))

	// The forced run publishes again, loses the ledger write, and is
	// discarded without notifying the member.
	s.generator.EXPECT().GenerateMetadata(gomock.Any(), memberID).Return(nil)
	s.generator.EXPECT().Generate(gomock.Any(), memberID).Return("/gen/42.png", nil)
	s.publisher.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(id.TransactionID("tx_new"), nil)

	s.startWorkers()
	s.Require().NoError(s.service.ForceReissue(ctx, memberID))

	s.eventually(func() bool { return s.audit.count(audit.EventIssuanceDiscarded) == 1 })
	s.Equal(1, s.audit.count(audit.EventReissueForced))
}

func (s *ServiceSuite) TestQueueFullDropsEvent() {
	ctx := context.Background()

	svc, err := New(s.ledger, s.generator, s.publisher, s.notifier,
		WithQueueCapacity(1),
		WithAuditPublisher(s.audit),
	)
	s.Require().NoError(err)

	// No workers are draining: the first join fills the queue, the second
	// is dropped without blocking.
	s.Require().NoError(svc.OnNewMember(ctx, id.MemberID(1)))
	s.Require().NoError(svc.OnNewMember(ctx, id.MemberID(2)))

	s.Equal(1, s.audit.count(audit.EventIssuanceDropped))
}

func (s *ServiceSuite) TestInvalidMemberID() {
	ctx := context.Background()

	err := s.service.OnNewMember(ctx, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	err = s.service.ForceReissue(ctx, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
