package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]*Schema)
	registryMu sync.RWMutex
)

// Register adds a schema variant to the registry.
// Panics if a variant with the same key is already registered.
func Register(s *Schema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := strings.ToLower(s.Key)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("schema variant already registered: %s", s.Key))
	}
	registry[key] = s
}

// Lookup returns a variant by key, case-insensitively.
func Lookup(key string) (*Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[strings.ToLower(strings.TrimSpace(key))]
	return s, ok
}

// MustLookup is Lookup for callers that have already validated the key.
func MustLookup(key string) *Schema {
	s, ok := Lookup(key)
	if !ok {
		panic(fmt.Sprintf("unknown schema variant: %s", key))
	}
	return s
}

// Variants returns the registered variant keys in sorted order.
func Variants() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
