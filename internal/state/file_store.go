package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"TradeGate/internal/domain/models"
)

// FileStore persists the last-known cohort signal as a JSON file. Writes
// go through a temp file and an atomic rename so a crash mid-write never
// corrupts the record; reads enforce a staleness ceiling so an old record
// is treated as absent, not as current.
type FileStore struct {
	path         string
	stalenessMax time.Duration
	now          func() time.Time
}

type persistedSignal struct {
	SavedAt time.Time           `json:"saved_at"`
	Signal  models.CohortSignal `json:"signal"`
}

// NewFileStore creates a store at path with the given staleness ceiling.
func NewFileStore(path string, stalenessMax time.Duration) *FileStore {
	return &FileStore{path: path, stalenessMax: stalenessMax, now: time.Now}
}

// Save writes the signal atomically: temp file in the same directory,
// fsync, then rename over the target.
func (s *FileStore) Save(_ context.Context, sig models.CohortSignal) error {
	rec := persistedSignal{SavedAt: s.now().UTC(), Signal: sig}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cohort state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cohort-*.tmp")
	if err != nil {
		return fmt.Errorf("state temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write cohort state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cohort state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cohort state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename cohort state: %w", err)
	}
	return nil
}

// Load returns the persisted signal when one exists for the symbol and it
// is within the staleness ceiling. A missing file is not an error.
func (s *FileStore) Load(_ context.Context, symbol string) (models.CohortSignal, bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.CohortSignal{}, false, nil
		}
		return models.CohortSignal{}, false, fmt.Errorf("read cohort state: %w", err)
	}

	var rec persistedSignal
	if err := json.Unmarshal(b, &rec); err != nil {
		// A torn record should be impossible with atomic renames; treat a
		// corrupt file as absent rather than wedging the pipeline.
		return models.CohortSignal{}, false, nil
	}
	if rec.Signal.Symbol != symbol {
		return models.CohortSignal{}, false, nil
	}
	if s.stalenessMax > 0 && s.now().Sub(rec.SavedAt) > s.stalenessMax {
		return models.CohortSignal{}, false, nil
	}
	return rec.Signal.Sanitized(), true, nil
}
