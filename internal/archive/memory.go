package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmerrifield20/educoin/internal/ledger"
)

// Memory is an in-memory, thread-safe Archive.
type Memory struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemory creates an empty Memory archive.
func NewMemory() *Memory {
	return &Memory{}
}

// Append implements Archive.
func (m *Memory) Append(_ context.Context, b *ledger.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tip *Record
	if n := len(m.records); n > 0 {
		tip = m.records[n-1]
	}
	if err := checkExtends(tip, b); err != nil {
		return err
	}
	m.records = append(m.records, newRecord(b))
	return nil
}

// Get implements Archive.
func (m *Memory) Get(_ context.Context, index int) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 1 || index > len(m.records) {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	cp := *m.records[index-1]
	cp.Body = append([]byte(nil), cp.Body...)
	return &cp, nil
}

// Len implements Archive.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Verify implements Archive.
func (m *Memory) Verify(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var prev *Record
	for _, r := range m.records {
		if err := verifyRecord(prev, r); err != nil {
			return err
		}
		prev = r
	}
	return nil
}

// Root implements Archive.
func (m *Memory) Root(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return "", nil
	}
	return m.records[len(m.records)-1].Hash, nil
}
