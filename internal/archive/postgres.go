package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/educoin/internal/ledger"
	"go.uber.org/zap"
)

// Postgres mirrors sealed blocks into the ledger_blocks table. Each daemon
// run starts a fresh chain, so rows are keyed by (session_id, idx).
type Postgres struct {
	pool    *pgxpool.Pool
	session uuid.UUID
	logger  *zap.Logger
}

// NewPostgres creates a Postgres archive writing under the given session.
func NewPostgres(pool *pgxpool.Pool, session uuid.UUID, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, session: session, logger: logger}
}

// Session returns the session ID rows are written under.
func (p *Postgres) Session() uuid.UUID { return p.session }

// Append implements Archive. The tail read and insert run in one
// transaction holding a session-scoped advisory lock.
func (p *Postgres) Append(ctx context.Context, b *ledger.Block) error {
	rec := newRecord(b)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", p.session.String()); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	var tip *Record
	t := &Record{}
	err = tx.QueryRow(ctx,
		`SELECT idx, hash FROM ledger_blocks WHERE session_id = $1 ORDER BY idx DESC LIMIT 1`,
		p.session,
	).Scan(&t.Index, &t.Hash)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read archive tail: %w", err)
	default:
		tip = t
	}
	if err := checkExtends(tip, b); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_blocks (session_id, idx, hash, previous_hash, body, archived_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.session, rec.Index, rec.Hash, rec.PreviousHash, rec.Body, rec.ArchivedAt,
	); err != nil {
		return fmt.Errorf("insert archived block: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}

	p.logger.Debug("block archived",
		zap.Int("index", rec.Index),
		zap.String("hash", rec.Hash),
		zap.String("session", p.session.String()),
	)
	return nil
}

// Get implements Archive.
func (p *Postgres) Get(ctx context.Context, index int) (*Record, error) {
	r := &Record{}
	err := p.pool.QueryRow(ctx,
		`SELECT idx, hash, previous_hash, body, archived_at
		 FROM ledger_blocks WHERE session_id = $1 AND idx = $2`, p.session, index,
	).Scan(&r.Index, &r.Hash, &r.PreviousHash, &r.Body, &r.ArchivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	if err != nil {
		return nil, fmt.Errorf("get archived block %d: %w", index, err)
	}
	return r, nil
}

// Len implements Archive.
func (p *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ledger_blocks WHERE session_id = $1", p.session,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archived blocks: %w", err)
	}
	return n, nil
}

// Verify implements Archive. It streams the session's rows in index order.
func (p *Postgres) Verify(ctx context.Context) error {
	rows, err := p.pool.Query(ctx,
		`SELECT idx, hash, previous_hash, body, archived_at
		 FROM ledger_blocks WHERE session_id = $1 ORDER BY idx ASC`, p.session,
	)
	if err != nil {
		return fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var prev *Record
	for rows.Next() {
		curr := &Record{}
		if err := rows.Scan(&curr.Index, &curr.Hash, &curr.PreviousHash, &curr.Body, &curr.ArchivedAt); err != nil {
			return fmt.Errorf("scan archive row: %w", err)
		}
		if err := verifyRecord(prev, curr); err != nil {
			return err
		}
		prev = curr
	}
	return rows.Err()
}

// Root implements Archive.
func (p *Postgres) Root(ctx context.Context) (string, error) {
	var hash string
	err := p.pool.QueryRow(ctx,
		"SELECT hash FROM ledger_blocks WHERE session_id = $1 ORDER BY idx DESC LIMIT 1", p.session,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get archive root: %w", err)
	}
	return hash, nil
}
