package store

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS agent_states (
		agent_id      TEXT PRIMARY KEY,
		ledger        BYTEA NOT NULL,
		state         TEXT NOT NULL,
		wake_interval TEXT NOT NULL,
		cycle_count   BIGINT NOT NULL DEFAULT 0,
		next_wake_at  TIMESTAMPTZ,
		last_loss_at  TIMESTAMPTZ,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_records (
		id            BIGSERIAL PRIMARY KEY,
		agent_id      TEXT NOT NULL,
		cycle_number  BIGINT NOT NULL,
		pair          TEXT NOT NULL,
		outcome       TEXT NOT NULL,
		action        TEXT,
		confidence    DOUBLE PRECISION,
		reasoning     TEXT,
		cause         TEXT,
		prompt_digest TEXT,
		forced_exits  JSONB,
		balance       DOUBLE PRECISION NOT NULL,
		price         DOUBLE PRECISION,
		error         TEXT,
		executed_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cycle_records_agent
		ON cycle_records (agent_id, executed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS metrics_history (
		id            BIGSERIAL PRIMARY KEY,
		agent_id      TEXT NOT NULL,
		balance       DOUBLE PRECISION NOT NULL,
		total_pnl_pct DOUBLE PRECISION NOT NULL,
		win_rate      DOUBLE PRECISION NOT NULL,
		total_trades  INT NOT NULL,
		sharpe_ratio  DOUBLE PRECISION,
		max_drawdown  DOUBLE PRECISION,
		computed_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_history_agent
		ON metrics_history (agent_id, computed_at DESC)`,
}

// EnsureSchema creates the tables the store writes to. Statements are
// idempotent so the daemon can run it unconditionally at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecCtx(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
