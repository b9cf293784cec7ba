package core

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLogger appends rows to the user activity audit trail. The log
// is advisory: a failed insert is reported to the server log and
// otherwise swallowed, so auditing never fails a business operation.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

func (l *ActivityLogger) Record(ctx context.Context, username, action, entityType string, entityID int, detail string) {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO user_activity_log (username, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, NULLIF($4, 0), $5)`,
		username, action, entityType, entityID, detail)
	if err != nil {
		log.Printf("activity log write failed (action=%s entity=%s/%d): %v", action, entityType, entityID, err)
	}
}

func (l *ActivityLogger) RecordLoginAttempt(ctx context.Context, username, remoteAddr string, success bool) {
	_, err := l.pool.Exec(ctx,
		"INSERT INTO login_attempts (username, remote_addr, success) VALUES ($1, $2, $3)",
		username, remoteAddr, success)
	if err != nil {
		log.Printf("login attempt log write failed (user=%s): %v", username, err)
	}
}
