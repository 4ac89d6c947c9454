// Package store persists the report collection as a single JSON file with a
// one-generation backup. Writes always replace the whole file.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"coroner/internal/domain"
)

const (
	defaultDir    = ".coroner"
	defaultFile   = "reports.json"
	defaultBackup = "reports.json.bak"
)

// ErrNotFound is returned when no report matches the requested id.
var ErrNotFound = errors.New("report not found")

type Config struct {
	Workspace string
	File      string
	Backup    string
}

// Store owns the canonical on-disk collection. The mutex serializes the
// read-modify-write cycle within this process so concurrent requests cannot
// tear the file; across processes the model stays last-write-wins at
// whole-file granularity.
type Store struct {
	path   string
	backup string
	mu     sync.Mutex
}

// EnsureWorkspace creates the workspace data directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, defaultDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the collection file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, defaultDir, defaultFile)
}

// New builds a Store rooted in the workspace, creating the data directory.
func New(cfg Config) (*Store, error) {
	dir, err := EnsureWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	file := cfg.File
	if file == "" {
		file = defaultFile
	}
	backup := cfg.Backup
	if backup == "" {
		backup = defaultBackup
	}
	return &Store{
		path:   filepath.Join(dir, file),
		backup: filepath.Join(dir, backup),
	}, nil
}

// List returns every report normalized to the nested shape. Malformed
// records are normalized and included rather than dropped.
func (s *Store) List(ctx context.Context) ([]domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns the report with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.Report, error) {
	reports, err := s.List(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	for _, r := range reports {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Report{}, ErrNotFound
}

// Update runs fn against the current collection and persists its result,
// backing up the previous file content first. The whole cycle holds the
// store lock.
func (s *Store) Update(ctx context.Context, fn func(reports []domain.Report) ([]domain.Report, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reports, err := s.read()
	if err != nil {
		return err
	}
	next, err := fn(reports)
	if err != nil {
		return err
	}
	return s.write(next)
}

func (s *Store) read() ([]domain.Report, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		// Legacy layout: a single report object instead of a collection.
		var single json.RawMessage
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
		raws = []json.RawMessage{single}
	}
	reports := make([]domain.Report, 0, len(raws))
	for _, raw := range raws {
		r, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *Store) write(reports []domain.Report) error {
	if reports == nil {
		reports = []domain.Report{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	// Best-effort one-generation backup; a backup failure never blocks the
	// write itself.
	if prev, err := os.ReadFile(s.path); err == nil {
		_ = os.WriteFile(s.backup, prev, 0o644)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// decodeRecord normalizes one stored record to the nested shape. Records
// already nested (carrying a header key) decode directly; legacy flat
// records pass through the shape conversion. Field-level type mismatches
// keep the partially decoded record instead of losing it.
func decodeRecord(raw json.RawMessage) (domain.Report, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return domain.Report{}, err
	}
	var report domain.Report
	if _, nested := keys["header"]; nested {
		if err := lenientUnmarshal(raw, &report); err != nil {
			return domain.Report{}, err
		}
	} else {
		var flat domain.FlatReport
		if err := lenientUnmarshal(raw, &flat); err != nil {
			return domain.Report{}, err
		}
		report = flat.ToNested()
	}
	normalizeLock(keys, &report)
	return report, nil
}

// normalizeLock applies the legacy-record shim: a submitted report written
// before the locked flag existed is treated as locked.
func normalizeLock(keys map[string]json.RawMessage, r *domain.Report) {
	if _, present := keys["locked"]; present {
		return
	}
	if r.Status == domain.StatusSubmitted {
		r.Locked = true
	}
}

func lenientUnmarshal(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil
		}
		return err
	}
	return nil
}
