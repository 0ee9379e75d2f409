package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore persists the last timestamp whose windows are fully written.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps the safe timestamp in a JSON file. The window size is recorded with it;
// a file written for a different size cannot be resumed, since its windows do not line up.
type FileStateStore struct {
	Path          string
	WindowSeconds uint64
}

type fileState struct {
	SafeTS        uint64 `json:"safe_ts"`
	WindowSeconds uint64 `json:"window_size_seconds,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	switch {
	case os.IsNotExist(err):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read aggregate state %s: %w", s.Path, err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, false, fmt.Errorf("parse aggregate state %s: %w", s.Path, err)
	}
	if st.WindowSeconds != 0 && s.WindowSeconds != 0 && st.WindowSeconds != s.WindowSeconds {
		return 0, false, fmt.Errorf("aggregate state %s is for %ds windows, not %ds; use --recompute-from or another state file",
			s.Path, st.WindowSeconds, s.WindowSeconds)
	}
	return st.SafeTS, true, nil
}

func (s *FileStateStore) Save(_ context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create aggregate state dir: %w", err)
		}
	}

	data, err := json.Marshal(fileState{
		SafeTS:        ts,
		WindowSeconds: s.WindowSeconds,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode aggregate state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create aggregate state tmp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write aggregate state tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close aggregate state tmp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace aggregate state: %w", err)
	}
	return nil
}

// NamedStateStore adapts a keyed store such as the runner_state table.
type NamedStateStore struct {
	Store interface {
		LoadState(ctx context.Context, name string) (uint64, bool, error)
		SaveState(ctx context.Context, name string, last uint64) error
	}
	Name string
}

func (s *NamedStateStore) Load(ctx context.Context) (uint64, bool, error) {
	return s.Store.LoadState(ctx, s.Name)
}

func (s *NamedStateStore) Save(ctx context.Context, ts uint64) error {
	return s.Store.SaveState(ctx, s.Name, ts)
}
