// Package dedup tracks which alert IDs have already produced an artifact.
//
// Stores keep a flat ID-to-record map with a 24 hour retention horizon.
// Expired records are dropped when the store loads, not swept in the
// background.
package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// FileStore persists processed records as one flat JSON object on disk.
type FileStore struct {
	path    string
	clock   clockwork.Clock
	logger  *zap.Logger
	records map[string]alert.ProcessedRecord
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string, clock clockwork.Clock, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:    path,
		clock:   clock,
		logger:  logger,
		records: make(map[string]alert.ProcessedRecord),
	}
}

// Load reads durable state and drops records past the dedup horizon. A
// missing file is an empty store, not an error.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.records = make(map[string]alert.ProcessedRecord)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store %s: %w", s.path, err)
	}

	var raw map[string]alert.ProcessedRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode store %s: %w", s.path, err)
	}

	s.records = prune(raw, s.clock.Now(), s.logger)
	return nil
}

// Seen reports whether the ID is already marked.
func (s *FileStore) Seen(id string) bool {
	_, ok := s.records[id]
	return ok
}

// Mark records the ID as processed. First mark wins.
func (s *FileStore) Mark(id, event string, now time.Time) {
	if _, ok := s.records[id]; ok {
		return
	}
	s.records[id] = alert.ProcessedRecord{AlertID: id, ProcessedAt: now, Event: event}
}

// Persist writes the full in-memory map.
func (s *FileStore) Persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	payload, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write store %s: %w", s.path, err)
	}
	return nil
}

// prune filters out records older than the dedup horizon.
func prune(raw map[string]alert.ProcessedRecord, now time.Time, logger *zap.Logger) map[string]alert.ProcessedRecord {
	kept := make(map[string]alert.ProcessedRecord, len(raw))
	dropped := 0
	for id, rec := range raw {
		if now.Sub(rec.ProcessedAt) >= alert.DedupHorizon {
			dropped++
			continue
		}
		if rec.AlertID == "" {
			rec.AlertID = id
		}
		kept[id] = rec
	}
	if dropped > 0 {
		logger.Info("expired dedup records dropped", zap.Int("count", dropped))
	}
	return kept
}
