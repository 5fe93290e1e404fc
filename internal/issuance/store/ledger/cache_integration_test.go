//go:build integration

package ledger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/issuance/store/ledger"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/testutil/containers"
)

type CachedLedgerSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *ledger.MemoryStore
	store *ledger.CachedStore
}

func TestCachedLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedLedgerSuite))
}

func (s *CachedLedgerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CachedLedgerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.inner = ledger.NewMemory()
	s.store = ledger.NewCached(s.inner, s.redis.Client, slog.Default())
}

func (s *CachedLedgerSuite) TestReadThrough() {
	ctx := context.Background()
	memberID := id.MemberID(42)

	has, err := s.store.Has(ctx, memberID)
	s.Require().NoError(err)
	s.False(has)

	// Populate the inner store behind the cache's back; the miss must fall
	// through and then warm the cache.
	s.Require().NoError(s.inner.Record(ctx, memberID))

	has, err = s.store.Has(ctx, memberID)
	s.Require().NoError(err)
	s.True(has)

	exists, err := s.redis.Client.Exists(ctx, "mintgate:issued:42").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}

func (s *CachedLedgerSuite) TestRecordWarmsCache() {
	ctx := context.Background()
	memberID := id.MemberID(7)

	s.Require().NoError(s.store.Record(ctx, memberID))

	exists, err := s.redis.Client.Exists(ctx, "mintgate:issued:7").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}

func (s *CachedLedgerSuite) TestConflictStillWarmsCache() {
	ctx := context.Background()
	memberID := id.MemberID(9)

	s.Require().NoError(s.inner.Record(ctx, memberID))

	// The losing writer gets the conflict, but the cache learns the row
	// exists either way.
	s.ErrorIs(s.store.Record(ctx, memberID), sentinel.ErrConflict)

	exists, err := s.redis.Client.Exists(ctx, "mintgate:issued:9").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}
