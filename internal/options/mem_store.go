package options

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// memStore is an in-memory Store used in tests and for throwaway runs.
// Values still round-trip through JSON so behavior matches the bbolt backend.
type memStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]map[string][]byte)}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Get(namespace, key string, out any) (bool, error) {
	if err := validateScope(namespace, key); err != nil {
		return false, err
	}

	m.mu.RLock()
	raw, ok := m.data[namespace][key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode option %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

func (m *memStore) Set(namespace, key string, val any) error {
	if err := validateScope(namespace, key); err != nil {
		return err
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode option %s/%s: %w", namespace, key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[namespace] == nil {
		m.data[namespace] = make(map[string][]byte)
	}
	m.data[namespace][key] = raw
	return nil
}

func (m *memStore) Delete(namespace, key string) error {
	if err := validateScope(namespace, key); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.data[namespace], key)
	m.mu.Unlock()
	return nil
}

func (m *memStore) DeleteAll(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is empty")
	}

	m.mu.Lock()
	delete(m.data, namespace)
	m.mu.Unlock()
	return nil
}

func (m *memStore) Keys(namespace string) ([]string, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data[namespace]))
	for k := range m.data[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
