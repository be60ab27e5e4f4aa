// Package registry is the persistent parser cache: generated extraction
// code keyed by (broker, document type, layout fingerprint), with a
// success/error history per entry.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// EntryError records the most recent failure of a cached parser.
type EntryError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry is one cached parser.
type Entry struct {
	Code         string      `json:"code"`
	CreatedAt    time.Time   `json:"created_at"`
	SuccessCount int         `json:"success_count"`
	LastError    *EntryError `json:"last_error,omitempty"`
}

// Registry is a flat key→Entry store persisted as a JSON file after every
// mutation. Guarded by a mutex; single-process writer discipline is assumed
// beyond that.
type Registry struct {
	path string
	log  logging.Logger

	mu      sync.Mutex
	entries map[string]*Entry
}

// Key joins the composite cache key the way the persisted format expects.
func Key(broker, docType, fp string) string {
	return strings.Join([]string{broker, docType, fp}, "|")
}

// Load opens the registry at path, creating an empty one when the file does
// not exist yet. A corrupt file is an error: silently starting empty would
// throw away every cached parser.
func Load(path string, log logging.Logger) (*Registry, error) {
	if log == nil {
		log = logging.GetLogger()
	}
	r := &Registry{path: path, log: log, entries: map[string]*Entry{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("corrupt registry %s: %w", path, err)
	}
	log.Debug("parser registry loaded",
		logging.Field{Key: logging.FieldCount, Value: len(r.entries)})
	return r, nil
}

// Get returns the cached code for the key, or "" when absent.
func (r *Registry) Get(broker, docType, fp string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[Key(broker, docType, fp)]
	if !ok {
		return "", false
	}
	return e.Code, true
}

// Save stores generated code under the key, resetting its history, and
// persists the registry.
func (r *Registry) Save(broker, docType, fp, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[Key(broker, docType, fp)] = &Entry{
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	return r.persist()
}

// RecordSuccess increments the entry's success counter and clears its last
// error. Never alters the stored code. Unknown keys are a no-op.
func (r *Registry) RecordSuccess(broker, docType, fp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[Key(broker, docType, fp)]
	if !ok {
		return nil
	}
	e.SuccessCount++
	e.LastError = nil
	return r.persist()
}

// RecordError overwrites the entry's last error. Unknown keys are a no-op.
func (r *Registry) RecordError(broker, docType, fp, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[Key(broker, docType, fp)]
	if !ok {
		return nil
	}
	e.LastError = &EntryError{Message: message, Timestamp: time.Now().UTC()}
	return r.persist()
}

// Invalidate removes the entry for the key and persists.
func (r *Registry) Invalidate(broker, docType, fp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := Key(broker, docType, fp)
	if _, ok := r.entries[key]; !ok {
		return nil
	}
	delete(r.entries, key)
	return r.persist()
}

// ListedEntry pairs a key with a copy of its entry for inspection.
type ListedEntry struct {
	Key   string
	Entry Entry
}

// List returns all entries sorted by key.
func (r *Registry) List() []ListedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ListedEntry, 0, len(r.entries))
	for k, e := range r.entries {
		out = append(out, ListedEntry{Key: k, Entry: *e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// persist writes the registry atomically (temp file + rename). Callers hold
// the mutex.
func (r *Registry) persist() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}
