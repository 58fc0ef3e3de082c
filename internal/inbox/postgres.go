package inbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createInboxSQL = `
CREATE TABLE IF NOT EXISTS inbox_entries (
	event_id   TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	backend_id TEXT NOT NULL,
	match_id   TEXT,
	payload    BYTEA,
	arrived_at TIMESTAMPTZ NOT NULL
)`

// Postgres is the fleet-mode ledger: the primary key on event_id is what
// makes check-and-insert atomic across every backend instance.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping inbox db: %w", err)
	}
	if _, err := pool.Exec(ctx, createInboxSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure inbox table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Record(ctx context.Context, e Entry) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO inbox_entries (event_id, event_type, backend_id, match_id, payload, arrived_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`, e.EventID, e.EventType, e.BackendID, e.MatchID, e.Payload, e.ArrivedAt)
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", e.EventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
