// Package presets persists named browse settings (topic context, column
// filters and search text) so a view can be reopened as it was left.
package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("preset not found")
	ErrInvalidName = errors.New("preset name must not be empty")
)

// Preset is one saved view.
type Preset struct {
	Name      string            `json:"name"`
	Topic     string            `json:"topic,omitempty"`
	Partition string            `json:"partition,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"` // field -> expression
	Search    string            `json:"search,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// fileData is the top-level container written to disk.
type fileData struct {
	Presets []Preset `json:"presets"`
}

// Store handles the persistence and in-memory management of presets.
type Store struct {
	filePath string
	mu       sync.RWMutex
	presets  map[string]Preset
	now      func() time.Time
}

// NewStore creates a store backed by filePath. Call Load before use.
func NewStore(filePath string) *Store {
	return &Store{
		filePath: filePath,
		presets:  make(map[string]Preset),
		now:      time.Now,
	}
}

// Load reads presets from disk. A missing or empty file is an empty store.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parsing presets %s: %w", s.filePath, err)
	}
	presets := make(map[string]Preset, len(data.Presets))
	for _, p := range data.Presets {
		presets[p.Name] = p
	}
	s.presets = presets
	return nil
}

// saveLocked writes every preset, replacing the file atomically.
func (s *Store) saveLocked() error {
	data := fileData{Presets: s.listLocked()}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".presets-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

// Put adds or replaces a preset and persists the store. CreatedAt survives
// replacement.
func (s *Store) Put(p Preset) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	if existing, ok := s.presets[p.Name]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Filters = copyFilters(p.Filters)

	prev, had := s.presets[p.Name]
	s.presets[p.Name] = p
	if err := s.saveLocked(); err != nil {
		if had {
			s.presets[p.Name] = prev
		} else {
			delete(s.presets, p.Name)
		}
		return err
	}
	return nil
}

// Get retrieves a preset by name.
func (s *Store) Get(name string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, false
	}
	p.Filters = copyFilters(p.Filters)
	return p, true
}

// Delete removes a preset and persists the store.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.presets[name]
	if !ok {
		return ErrNotFound
	}
	delete(s.presets, name)
	if err := s.saveLocked(); err != nil {
		s.presets[name] = p
		return err
	}
	return nil
}

// List returns every preset ordered by name.
func (s *Store) List() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

func (s *Store) listLocked() []Preset {
	list := make([]Preset, 0, len(s.presets))
	for _, p := range s.presets {
		p.Filters = copyFilters(p.Filters)
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func copyFilters(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
