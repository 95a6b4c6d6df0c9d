package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Store is one namespace of key/value preferences backed by a single
// JSON file. Values are whatever JSON can carry; numeric values read
// back as float64, which the typed getters normalize.
//
// Mutations persist immediately through a temp-file rename, so a power
// cut never leaves a half-written store behind.
type Store struct {
	namespace string
	path      string
	logger    *logging.Logger

	mu     sync.RWMutex
	values map[string]interface{} // Protected by mu
	loaded bool                   // Protected by mu
}

func newStore(namespace, path string, logger *logging.Logger) *Store {
	return &Store{
		namespace: namespace,
		path:      path,
		logger:    logger,
		values:    make(map[string]interface{}),
	}
}

// Namespace returns the store's namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// load reads the backing file once. Missing files mean an empty store.
// Callers hold s.mu.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("prefs load failed, starting empty",
				zap.String("namespace", s.namespace), zap.Error(err))
		}
		return
	}

	var values map[string]interface{}
	if err := sonic.Unmarshal(data, &values); err != nil {
		s.logger.Warn("prefs file corrupt, starting empty",
			zap.String("namespace", s.namespace), zap.Error(err))
		return
	}
	s.values = values
}

// persist writes the store through a temp file and rename.
// Callers hold s.mu.
func (s *Store) persist() error {
	data, err := sonic.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs %q: %w", s.namespace, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs %q: %w", s.namespace, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace prefs %q: %w", s.namespace, err)
	}
	return nil
}

// Get returns the raw value for key and whether it exists.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	v, ok := s.values[key]
	return v, ok
}

// GetString returns a string value, or fallback when absent or mistyped.
func (s *Store) GetString(key, fallback string) string {
	if v, ok := s.Get(key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return fallback
}

// GetBool returns a boolean value, or fallback when absent or mistyped.
func (s *Store) GetBool(key string, fallback bool) bool {
	if v, ok := s.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// GetInt returns an integer value, or fallback when absent or mistyped.
// JSON numbers round-trip as float64 and are truncated here.
func (s *Store) GetInt(key string, fallback int) int {
	if v, ok := s.Get(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return fallback
}

// GetFloat returns a numeric value, or fallback when absent or mistyped.
func (s *Store) GetFloat(key string, fallback float64) float64 {
	if v, ok := s.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return fallback
}

// Set stores a value and persists the namespace.
func (s *Store) Set(key string, value interface{}) error {
	if key == "" {
		return fmt.Errorf("prefs key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	s.values[key] = value
	return s.persist()
}

// Delete removes a key and persists the namespace. Deleting an absent
// key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persist()
}

// Keys returns all keys, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return len(s.values)
}

// All returns a copy of every key/value pair.
func (s *Store) All() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clear removes every key and persists the empty namespace.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	s.values = make(map[string]interface{})
	return s.persist()
}
