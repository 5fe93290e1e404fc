package ledger

import (
	"context"
	"database/sql"
	"fmt"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// PostgresStore persists member issuance records in PostgreSQL. member_id is
// the primary key, which makes Record the sole serialization point for
// concurrent duplicate join events.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger table when it does not exist yet. Schema
// migration tooling is deliberately out of scope; this single statement is
// the whole schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS member_register (
			member_id BIGINT PRIMARY KEY,
			issued_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Has reports whether the member already holds an artifact. Reads go to the
// primary, so a prior Record from this process is always visible.
func (s *PostgresStore) Has(ctx context.Context, memberID id.MemberID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM member_register WHERE member_id = $1`, int64(memberID),
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check member record: %w", err)
	}
	return true, nil
}

// Record marks the member as issued. The insert is atomic: when a concurrent
// writer already inserted the row, the statement affects zero rows and the
// caller gets sentinel.ErrConflict so it can stand down without a
// member-visible error.
func (s *PostgresStore) Record(ctx context.Context, memberID id.MemberID) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO member_register (member_id)
		VALUES ($1)
		ON CONFLICT (member_id) DO NOTHING
	`, int64(memberID))
	if err != nil {
		return fmt.Errorf("record member %s: %w", memberID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record member %s: %w", memberID, err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}
