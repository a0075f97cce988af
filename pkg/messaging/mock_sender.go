package messaging

import (
	"context"
	"sync"
)

// RecordingSender keeps every trade it receives, in order. Used by tests.
type RecordingSender struct {
	mu      sync.Mutex
	records []TradeRecord
	err     error
}

// NewRecordingSender creates a new RecordingSender.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

// FailWith makes every following SendTrade return err.
func (m *RecordingSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SendTrade stores the record.
func (m *RecordingSender) SendTrade(_ context.Context, trade TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, trade)
	return nil
}

// Records returns a copy of the received trades.
func (m *RecordingSender) Records() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Ensure RecordingSender implements TradeSender
var _ TradeSender = (*RecordingSender)(nil)
