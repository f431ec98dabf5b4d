package gamedb

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
)

// DefaultSettings returns the server configuration defaults.
func DefaultSettings() map[string]any {
	return map[string]any{
		"connect_msg":                 "*** Connected ***",
		"login_timeout":               60,
		"timeout_msg":                 "*** Timed out while waiting for login. ***",
		"disconnect_msg":              "*** Disconnected ***",
		"redirect_msg":                "*** Redirecting to {host}:{port}. ***",
		"max_create_retries":          5,
		"max_create_retries_exceeded": "Maximum number of retries exceeded. Please come again.",
		"server_name":                 "The LittleMUD Test Server",
		"command_history_length":      100,
		"banned_hosts":                []string{},
	}
}

// Settings is the server-wide key/value configuration. It is read from
// the accept loop as well as from world jobs, so it carries its own lock.
type Settings struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSettings returns settings populated with DefaultSettings.
func NewSettings() *Settings {
	return &Settings{values: DefaultSettings()}
}

// Get returns the raw value for key.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString returns key formatted as a string, or "" when unset.
func (s *Settings) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// GetInt returns key as an integer, or fallback when unset or not numeric.
func (s *Settings) GetInt(key string, fallback int) int {
	v, ok := s.Get(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return fallback
}

// GetStrings returns key as a list of strings.
func (s *Settings) GetStrings(key string) []string {
	v, ok := s.Get(key)
	if !ok {
		return nil
	}
	switch l := v.(type) {
	case []string:
		return slices.Clone(l)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Set stores value under key.
func (s *Settings) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Clear removes key.
func (s *Settings) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Keys returns the sorted setting names.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Snapshot copies all values.
func (s *Settings) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Merge overwrites the keys present in values.
func (s *Settings) Merge(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, values)
}

// Reset restores the defaults.
func (s *Settings) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = DefaultSettings()
}

// ContainsString reports whether the list setting key holds item.
func (s *Settings) ContainsString(key, item string) bool {
	return slices.Contains(s.GetStrings(key), item)
}
