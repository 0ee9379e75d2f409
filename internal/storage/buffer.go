package storage

import (
	"context"
	"sync"

	"cpswap/internal/model"
)

// Buffer collects emitted events in memory until they are flushed to a Storage.
type Buffer struct {
	mu      sync.Mutex
	pending []model.EventRecord
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Emit queues rec. It never fails; delivery errors surface from Flush.
func (b *Buffer) Emit(rec model.EventRecord) error {
	b.mu.Lock()
	b.pending = append(b.pending, rec)
	b.mu.Unlock()
	return nil
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush writes every queued record to target. Records stay queued if the write fails.
func (b *Buffer) Flush(ctx context.Context, target Storage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	if err := target.PutEventBatch(ctx, b.pending); err != nil {
		return err
	}
	b.pending = nil
	return nil
}

// Discard drops every queued record and reports how many there were.
func (b *Buffer) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.pending)
	b.pending = nil
	return n
}
