// Package inbox is the idempotency ledger for externally delivered events.
//
// Every effectful operation that can arrive more than once (at-least-once
// delivery, client retries, multiple backend instances seeing the same
// upstream event) is gated through Record: exactly one caller per event id
// observes novel=true, and only that caller applies effects.
package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one externally delivered event. Entries are append-only; nothing
// mutates them after insert and the ledger never interprets Payload.
type Entry struct {
	EventID   string
	EventType string
	BackendID string
	MatchID   string
	Payload   []byte
	ArrivedAt time.Time
}

// Store is the ledger contract. Record must be atomic for a given event id
// across every caller sharing the store: under concurrent inserts of the same
// id, exactly one observes novel=true. For fleet deployments that means a
// shared durable store with a conditional-insert primitive, not an in-process
// lock.
type Store interface {
	Record(ctx context.Context, e Entry) (novel bool, err error)
	Close() error
}

// EnsureEventID returns the caller-supplied id, or generates one before any
// side effect when the caller omitted it. A generated id cannot deduplicate a
// caller that retries without a stable key; that is a caller contract
// violation, not a ledger failure.
func EnsureEventID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
