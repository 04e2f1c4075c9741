package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresLedger stores deliveries in the automation_deliveries table.
type PostgresLedger struct {
	db    *sql.DB
	lease time.Duration
}

func NewPostgresLedger(db *sql.DB, lease time.Duration) *PostgresLedger {
	return &PostgresLedger{db: db, lease: lease}
}

// Claim inserts a pending row, or takes over a failed or expired one, in a
// single statement. No returned row means someone else owns the delivery.
func (s *PostgresLedger) Claim(ctx context.Context, eventID, target, eventType string) (bool, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO automation_deliveries (event_id, target, event_type, status, attempts)
		VALUES ($1, $2, $3, 'pending', 1)
		ON CONFLICT (event_id, target) DO UPDATE
			SET status = 'pending',
			    attempts = automation_deliveries.attempts + 1,
			    updated_at = NOW()
			WHERE automation_deliveries.status = 'failed'
			   OR (automation_deliveries.status = 'pending'
			       AND automation_deliveries.updated_at < NOW() - make_interval(secs => $4))
		RETURNING attempts`,
		eventID, target, eventType, s.lease.Seconds(),
	).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim delivery %s/%s: %w", eventID, target, err)
	}
	return true, nil
}

func (s *PostgresLedger) MarkDelivered(ctx context.Context, eventID, target string) error {
	return s.set(ctx, eventID, target, StatusDelivered, "")
}

func (s *PostgresLedger) MarkFailed(ctx context.Context, eventID, target, reason string) error {
	return s.set(ctx, eventID, target, StatusFailed, reason)
}

func (s *PostgresLedger) set(ctx context.Context, eventID, target, status, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE automation_deliveries SET status = $1, last_error = $2, updated_at = NOW()
		WHERE event_id = $3 AND target = $4`,
		status, reason, eventID, target)
	if err != nil {
		return fmt.Errorf("mark delivery %s/%s %s: %w", eventID, target, status, err)
	}
	return nil
}

// Get loads one delivery row; (nil, nil) when absent.
func (s *PostgresLedger) Get(ctx context.Context, eventID, target string) (*Delivery, error) {
	var d Delivery
	err := s.db.QueryRowContext(ctx, `
		SELECT event_id, target, event_type, status, attempts, last_error, updated_at
		FROM automation_deliveries WHERE event_id = $1 AND target = $2`, eventID, target,
	).Scan(&d.EventID, &d.Target, &d.EventType, &d.Status, &d.Attempts, &d.LastError, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery %s/%s: %w", eventID, target, err)
	}
	return &d, nil
}
