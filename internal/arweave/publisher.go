package arweave

import (
	"context"
	"log/slog"
	"math"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/issuance/models"
	"mintgate/internal/platform/metrics"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

const contentTypeTag = "Content-Type"

// Publisher turns a local artifact file into a published, content-addressed
// transaction. Each Upload is a fresh price-quote → build → sign → submit
// sequence: quotes and signatures bind to the exact transaction they were
// computed for, so nothing carries over between attempts.
//
// The wallet is shared and read-only; the per-upload transaction state is
// built inside Upload and never reused.
type Publisher struct {
	wallet           *Wallet
	client           *Client
	rewardMultiplier float64
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer

	mu           sync.Mutex
	fileLocation string
	lastTxID     id.TransactionID
}

// Option configures a Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithRewardMultiplier scales the live price quote to outbid fee
// fluctuation between quote and submission.
func WithRewardMultiplier(multiplier float64) Option {
	return func(p *Publisher) {
		if multiplier > 0 {
			p.rewardMultiplier = multiplier
		}
	}
}

// NewPublisher constructs a content publisher over the given wallet and
// gateway client.
func NewPublisher(wallet *Wallet, client *Client, opts ...Option) *Publisher {
	p := &Publisher{
		wallet:           wallet,
		client:           client,
		rewardMultiplier: 1.5,
		logger:           slog.Default(),
		tracer:           otel.Tracer("mintgate/arweave"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload publishes the file with the given tags and returns the network
// transaction id. Any failing step aborts the whole attempt; a retry
// restarts from the price quote.
func (p *Publisher) Upload(ctx context.Context, fileLocation string, tags []models.Tag) (id.TransactionID, error) {
	ctx, span := p.tracer.Start(ctx, "publisher.upload",
		trace.WithAttributes(attribute.String("file", fileLocation)))
	defer span.End()

	start := time.Now()

	data, err := os.ReadFile(fileLocation)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePublish, "read artifact file")
	}

	price, err := p.client.Price(ctx, len(data))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePublish, "quote price terms")
	}
	reward := int64(math.Ceil(float64(price) * p.rewardMultiplier))

	anchor, err := p.client.Anchor(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePublish, "fetch anchor")
	}

	tx := NewTransaction(p.wallet, data, withContentType(tags, fileLocation), reward, anchor)
	if err := tx.Sign(p.wallet); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePublish, "sign transaction")
	}

	p.logger.DebugContext(ctx, "submitting transaction",
		"tx_id", tx.ID,
		"file", fileLocation,
		"size", len(data),
		"reward", reward,
	)

	if err := p.client.Submit(ctx, tx); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePublish, "submit transaction")
	}

	txID := id.TransactionID(tx.ID)
	p.mu.Lock()
	p.fileLocation = fileLocation
	p.lastTxID = txID
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.ObserveUpload(time.Since(start))
	}
	span.SetAttributes(attribute.String("tx_id", tx.ID))

	return txID, nil
}

// Status queries confirmation of the most recently uploaded transaction.
// Calling it before any successful Upload fails with a not-submitted error.
func (p *Publisher) Status(ctx context.Context) (string, error) {
	p.mu.Lock()
	txID := p.lastTxID
	p.mu.Unlock()

	if txID.IsNil() {
		return "", dErrors.New(dErrors.CodeNotSubmitted, "no transaction has been submitted")
	}
	status, err := p.client.Status(ctx, txID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "query transaction status")
	}
	return status, nil
}

// withContentType appends a Content-Type tag derived from the file
// extension unless the caller already set one.
func withContentType(tags []models.Tag, fileLocation string) []models.Tag {
	for _, t := range tags {
		if t.Name == contentTypeTag {
			return tags
		}
	}
	ct := mime.TypeByExtension(filepath.Ext(fileLocation))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return append(tags, models.Tag{Name: contentTypeTag, Value: ct})
}
