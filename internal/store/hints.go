// Package store holds the YAML-backed ticker hint table: product-name
// fragments mapped to ticker symbols, used to backfill tickers on PDF
// records that only carry display names.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// HintStore maps lower-cased product-name fragments to tickers. Mutations
// mark the store dirty; Save persists only when something changed.
type HintStore struct {
	path string

	mu    sync.Mutex
	hints map[string]string
	dirty bool
}

// LoadHints opens the hint file, starting empty when it does not exist.
func LoadHints(path string) (*HintStore, error) {
	s := &HintStore{path: path, hints: map[string]string{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hint file %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid hint file %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return s, nil
	}
	// The file must be a fragment→ticker mapping; a scalar or sequence
	// document means the file is corrupt, not empty.
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid hint file %s: expected a fragment-to-ticker mapping", path)
	}
	raw := map[string]string{}
	if err := root.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid hint file %s: %w", path, err)
	}
	for fragment, ticker := range raw {
		s.hints[strings.ToLower(strings.TrimSpace(fragment))] = strings.ToUpper(strings.TrimSpace(ticker))
	}
	return s, nil
}

// Lookup resolves a product name to a ticker: exact fragment match first,
// then the first fragment contained in the name (longest fragment wins to
// keep matches specific).
func (s *HintStore) Lookup(productName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(productName))
	if name == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ticker, ok := s.hints[name]; ok {
		return ticker, true
	}

	var bestFragment, bestTicker string
	for fragment, ticker := range s.hints {
		if strings.Contains(name, fragment) && len(fragment) > len(bestFragment) {
			bestFragment, bestTicker = fragment, ticker
		}
	}
	if bestTicker == "" {
		return "", false
	}
	return bestTicker, true
}

// Add records a new hint and marks the store dirty.
func (s *HintStore) Add(fragment, ticker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(fragment))
	value := strings.ToUpper(strings.TrimSpace(ticker))
	if key == "" || value == "" {
		return
	}
	if existing, ok := s.hints[key]; ok && existing == value {
		return
	}
	s.hints[key] = value
	s.dirty = true
}

// Save persists the hints when dirty. A clean store is a no-op.
func (s *HintStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	data, err := yaml.Marshal(s.hints)
	if err != nil {
		return fmt.Errorf("failed to encode hints: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create hint directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write hint file: %w", err)
	}
	s.dirty = false
	return nil
}
