package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cpswap/internal/model"
)

// JsonlStorage writes event records, pool snapshots and step errors to JSONL files.
type JsonlStorage struct {
	eventsPath string
	poolsPath  string
	errorsPath string
	mu         sync.Mutex
}

// NewJsonlStorage appends events to eventsPath, snapshots to poolsPath and rejected steps to
// errorsPath. An empty poolsPath or errorsPath discards those records.
func NewJsonlStorage(eventsPath, poolsPath, errorsPath string) *JsonlStorage {
	return &JsonlStorage{eventsPath: eventsPath, poolsPath: poolsPath, errorsPath: errorsPath}
}

// PutEventBatch appends a batch of event records as JSON lines.
func (s *JsonlStorage) PutEventBatch(_ context.Context, records []model.EventRecord) error {
	return appendLines(&s.mu, s.eventsPath, records)
}

// PutPoolSnapshots appends pool snapshots as JSON lines.
func (s *JsonlStorage) PutPoolSnapshots(_ context.Context, pools []model.PoolSnapshot) error {
	if s.poolsPath == "" {
		return nil
	}
	return appendLines(&s.mu, s.poolsPath, pools)
}

// PutStepErrors appends rejected steps as JSON lines.
func (s *JsonlStorage) PutStepErrors(_ context.Context, stepErrors []model.StepError) error {
	if s.errorsPath == "" {
		return nil
	}
	return appendLines(&s.mu, s.errorsPath, stepErrors)
}

// JsonlWindowStorage writes pool window metrics to a JSONL file.
type JsonlWindowStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlWindowStorage(path string) *JsonlWindowStorage {
	return &JsonlWindowStorage{path: path}
}

// PutWindowMetrics appends window metrics as JSON lines.
func (s *JsonlWindowStorage) PutWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	return appendLines(&s.mu, s.path, metrics)
}

func appendLines[T any](mu *sync.Mutex, path string, items []T) error {
	if len(items) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
