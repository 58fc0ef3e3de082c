package inbox

import (
	"context"
	"sync"
)

// Memory is a process-local ledger for tests and throwaway dev runs. It does
// not survive restarts and must never back a real deployment.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Record(ctx context.Context, e Entry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.entries[e.EventID]; seen {
		return false, nil
	}
	m.entries[e.EventID] = e
	return true, nil
}

func (m *Memory) Close() error { return nil }

// Len reports the number of recorded entries; test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
