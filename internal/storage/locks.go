package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// lockProfile serializes writers of one profile until tx ends, so two
// replicas saving the same user cannot interleave their result rows.
func lockProfile(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", userID); err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}

	return nil
}

// acquireAdvisoryLock blocks until the session-level lock is held on conn.
// The returned func releases it.
func acquireAdvisoryLock(ctx context.Context, conn *pgxpool.Conn, lockID int64) (func(), error) {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	return func() {
		//nolint:errcheck // advisory unlock in defer is best-effort, lock released on connection close anyway
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockID)
	}, nil
}
