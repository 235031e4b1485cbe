package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/storage"
)

// step is one numbered schema change. Steps run inside a transaction and are
// written to be safe to re-run: tables and indexes are created only when
// absent and added columns tolerate already existing.
type step struct {
	version int64
	name    string
	up      func(ctx context.Context, tx *sql.Tx, d storage.Dialect) error
}

// Seeded tiers. Ids are fixed so invites and scripts can refer to them.
var defaultTiers = []struct {
	id          int64
	name        string
	dailyLimit  int
	description string
}{
	{1, "Free", 10, "Ten captions a day"},
	{2, "Pro", 100, "One hundred captions a day"},
	{3, "Unlimited", -1, "No daily limit"},
}

func steps() []step {
	return []step{
		{1, "create users", createUsers},
		{2, "create login_tokens", createLoginTokens},
		{3, "create user_sessions", createUserSessions},
		{4, "create invite_tokens", createInviteTokens},
		{5, "create user_tiers", createUserTiers},
		{6, "add users.tier_id", addUsersTier},
		{7, "add invite_tokens.tier_id", addInviteTier},
		{8, "create daily_usage", createDailyUsage},
		{9, "create user_settings", createUserSettings},
		{10, "create query_logs", createQueryLogs},
		{11, "create system_settings", createSystemSettings},
		{12, "create indexes", createIndexes},
	}
}

func exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec %q: %w", firstLine(query), err)
	}
	return nil
}

func firstLine(q string) string {
	for i, c := range q {
		if c == '\n' || c == '(' {
			return q[:i]
		}
	}
	return q
}

// addColumn adds a nullable column. Engines without ADD COLUMN IF NOT EXISTS
// report the duplicate as an error, which is swallowed here. A failed
// statement does not poison a SQLite transaction, so the step carries on.
func addColumn(ctx context.Context, tx *sql.Tx, d storage.Dialect, table, column, def string) error {
	if d.DDL().AddColumnIfNotExists {
		return exec(ctx, tx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, column, def))
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def))
	if err != nil && !d.IsDuplicateColumn(err) {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

func createUsers(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
		id %s,
		email %s NOT NULL UNIQUE,
		is_active %s NOT NULL DEFAULT TRUE,
		is_admin %s NOT NULL DEFAULT FALSE,
		created_at %s NOT NULL,
		last_login %s
	)`, t.AutoID, t.Text, t.Bool, t.Bool, t.Timestamp, t.Timestamp))
}

func createLoginTokens(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS login_tokens (
		token %s PRIMARY KEY,
		email %s NOT NULL,
		created_at %s NOT NULL,
		expires_at %s NOT NULL,
		used_at %s,
		ip_address %s NOT NULL DEFAULT '',
		user_agent %s NOT NULL DEFAULT ''
	)`, t.Text, t.Text, t.Timestamp, t.Timestamp, t.Timestamp, t.Text, t.Text))
}

func createUserSessions(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_sessions (
		session_id %s PRIMARY KEY,
		user_id %s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at %s NOT NULL,
		expires_at %s NOT NULL,
		ip_address %s NOT NULL DEFAULT '',
		user_agent %s NOT NULL DEFAULT ''
	)`, t.Text, t.BigInt, t.Timestamp, t.Timestamp, t.Text, t.Text))
}

func createInviteTokens(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS invite_tokens (
		token %s PRIMARY KEY,
		email %s NOT NULL,
		invited_by %s REFERENCES users(id) ON DELETE SET NULL,
		created_at %s NOT NULL,
		expires_at %s NOT NULL,
		personal_message %s,
		used_at %s,
		used_by %s REFERENCES users(id) ON DELETE SET NULL
	)`, t.Text, t.Text, t.BigInt, t.Timestamp, t.Timestamp, t.Text, t.Timestamp, t.BigInt))
}

func createUserTiers(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	err := exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_tiers (
		id %s,
		name %s NOT NULL UNIQUE,
		daily_limit %s NOT NULL CHECK (daily_limit >= -1),
		description %s,
		created_at %s NOT NULL,
		updated_at %s NOT NULL
	)`, t.AutoID, t.Text, t.BigInt, t.Text, t.Timestamp, t.Timestamp))
	if err != nil {
		return err
	}

	now := d.Time(time.Now())
	seed := d.Rebind(`INSERT INTO user_tiers (id, name, daily_limit, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`)
	for _, tier := range defaultTiers {
		if err := exec(ctx, tx, seed, tier.id, tier.name, tier.dailyLimit, tier.description, now, now); err != nil {
			return err
		}
	}

	if d.Name() == storage.KindPostgres {
		// explicit ids do not advance the identity sequence
		return exec(ctx, tx, `SELECT setval(pg_get_serial_sequence('user_tiers', 'id'), (SELECT MAX(id) FROM user_tiers))`)
	}
	return nil
}

func addUsersTier(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	return addColumn(ctx, tx, d, "users", "tier_id", d.DDL().BigInt+" REFERENCES user_tiers(id)")
}

func addInviteTier(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	return addColumn(ctx, tx, d, "invite_tokens", "tier_id", d.DDL().BigInt+" REFERENCES user_tiers(id)")
}

func createDailyUsage(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS daily_usage (
		id %s,
		user_id %s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date %s NOT NULL,
		usage_count %s NOT NULL DEFAULT 0,
		UNIQUE (user_id, date)
	)`, t.AutoID, t.BigInt, t.Text, t.BigInt))
}

func createUserSettings(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_settings (
		id %s,
		user_id %s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category %s NOT NULL,
		setting_key %s NOT NULL,
		setting_value %s NOT NULL,
		encrypted %s NOT NULL DEFAULT FALSE,
		created_at %s NOT NULL,
		updated_at %s NOT NULL,
		UNIQUE (user_id, category, setting_key)
	)`, t.AutoID, t.BigInt, t.Text, t.Text, t.Text, t.Bool, t.Timestamp, t.Timestamp))
}

func createQueryLogs(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS query_logs (
		id %s PRIMARY KEY,
		source %s NOT NULL,
		user_id %s,
		email %s,
		processing_time_ms %s NOT NULL DEFAULT 0,
		response_length %s NOT NULL DEFAULT 0,
		"timestamp" %s NOT NULL
	)`, t.Text, t.Text, t.BigInt, t.Text, t.BigInt, t.BigInt, t.Timestamp))
}

func createSystemSettings(ctx context.Context, tx *sql.Tx, d storage.Dialect) error {
	t := d.DDL()
	return exec(ctx, tx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS system_settings (
		name %s PRIMARY KEY,
		value %s NOT NULL,
		updated_at %s NOT NULL
	)`, t.Text, t.Text, t.Timestamp))
}

func createIndexes(ctx context.Context, tx *sql.Tx, _ storage.Dialect) error {
	for _, q := range []string{
		`CREATE INDEX IF NOT EXISTS idx_login_tokens_email ON login_tokens (email)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_user ON user_sessions (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_expires ON user_sessions (expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invite_tokens_email ON invite_tokens (email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_tier ON users (tier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_usage_date ON daily_usage (date)`,
		`CREATE INDEX IF NOT EXISTS idx_query_logs_timestamp ON query_logs ("timestamp")`,
	} {
		if err := exec(ctx, tx, q); err != nil {
			return err
		}
	}
	return nil
}
