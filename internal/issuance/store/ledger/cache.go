package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"mintgate/internal/issuance/ports"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

const cachePrefix = "mintgate:issued:"

// CachedStore layers Redis in front of another ledger store. Only positive
// entries are cached: records are immutable once written, so a cached
// "issued" can never go stale, and misses always fall through to the inner
// store, which keeps the gating read strongly consistent.
//
// Redis is advisory here. Every cache failure degrades to the inner store
// and is logged at debug level.
type CachedStore struct {
	inner  ports.LedgerStore
	client *redis.Client
	logger *slog.Logger
}

func NewCached(inner ports.LedgerStore, client *redis.Client, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, logger: logger}
}

func (s *CachedStore) Has(ctx context.Context, memberID id.MemberID) (bool, error) {
	key := cachePrefix + memberID.String()

	if err := s.client.Get(ctx, key).Err(); err == nil {
		return true, nil
	} else if err != redis.Nil {
		s.logger.DebugContext(ctx, "ledger cache read failed", "member_id", memberID, "error", err)
	}

	has, err := s.inner.Has(ctx, memberID)
	if err != nil {
		return false, err
	}
	if has {
		s.markIssued(ctx, key)
	}
	return has, nil
}

func (s *CachedStore) Record(ctx context.Context, memberID id.MemberID) error {
	err := s.inner.Record(ctx, memberID)
	if err == nil || errors.Is(err, sentinel.ErrConflict) {
		// Either way the row exists now.
		s.markIssued(ctx, cachePrefix+memberID.String())
	}
	return err
}

func (s *CachedStore) markIssued(ctx context.Context, key string) {
	if err := s.client.Set(ctx, key, "1", 0).Err(); err != nil {
		s.logger.DebugContext(ctx, "ledger cache write failed", "key", key, "error", err)
	}
}
