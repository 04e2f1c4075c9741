package automation

import (
	"context"
	"sync"
	"time"
)

// Delivery statuses recorded in a Ledger.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Ledger records webhook deliveries per (event id, target).
type Ledger interface {
	// Claim reserves the delivery. It returns false when the delivery has
	// already succeeded or another worker holds a live claim on it.
	Claim(ctx context.Context, eventID, target, eventType string) (bool, error)
	MarkDelivered(ctx context.Context, eventID, target string) error
	MarkFailed(ctx context.Context, eventID, target, reason string) error
}

// Delivery is one ledger row.
type Delivery struct {
	EventID   string    `json:"event_id"`
	Target    string    `json:"target"`
	EventType string    `json:"event_type"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu    sync.Mutex
	lease time.Duration
	now   func() time.Time
	rows  map[string]*Delivery
}

// NewMemoryLedger returns a ledger whose pending claims expire after lease.
func NewMemoryLedger(lease time.Duration) *MemoryLedger {
	return &MemoryLedger{lease: lease, now: time.Now, rows: make(map[string]*Delivery)}
}

func (l *MemoryLedger) Claim(_ context.Context, eventID, target, eventType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := eventID + "|" + target
	now := l.now()
	d, ok := l.rows[key]
	if !ok {
		l.rows[key] = &Delivery{EventID: eventID, Target: target, EventType: eventType, Status: StatusPending, Attempts: 1, UpdatedAt: now}
		return true, nil
	}
	if !reclaimable(d.Status, d.UpdatedAt, now, l.lease) {
		return false, nil
	}
	d.Status = StatusPending
	d.Attempts++
	d.UpdatedAt = now
	return true, nil
}

func (l *MemoryLedger) MarkDelivered(_ context.Context, eventID, target string) error {
	return l.set(eventID, target, StatusDelivered, "")
}

func (l *MemoryLedger) MarkFailed(_ context.Context, eventID, target, reason string) error {
	return l.set(eventID, target, StatusFailed, reason)
}

func (l *MemoryLedger) set(eventID, target, status, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.rows[eventID+"|"+target]; ok {
		d.Status = status
		d.LastError = reason
		d.UpdatedAt = l.now()
	}
	return nil
}

// Get returns a copy of the row, if any.
func (l *MemoryLedger) Get(eventID, target string) (Delivery, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.rows[eventID+"|"+target]
	if !ok {
		return Delivery{}, false
	}
	return *d, true
}

// reclaimable reports whether an existing row may be claimed again: it
// failed, or its pending claim outlived the lease.
func reclaimable(status string, updated, now time.Time, lease time.Duration) bool {
	switch status {
	case StatusFailed:
		return true
	case StatusPending:
		return lease > 0 && now.Sub(updated) >= lease
	default:
		return false
	}
}
