package options

import (
	"errors"
	"fmt"
	"strings"
)

// Package options provides the durable key-value store importers persist
// their state in: work queue, cursor, run log, token id and user settings.
// Every key lives under a namespace so several importer instances can share
// one store file without colliding.

// Store is the durable option storage contract.
type Store interface {
	Close() error
	// Get decodes the value stored under namespace/key into out and reports
	// whether the key was present. Absent keys leave out untouched.
	Get(namespace, key string, out any) (bool, error)
	Set(namespace, key string, val any) error
	Delete(namespace, key string) error
	// DeleteAll removes every key in the namespace.
	DeleteAll(namespace string) error
	// Keys lists the keys currently present in the namespace.
	Keys(namespace string) ([]string, error)
}

// ErrClosed is returned when operating on a store that has been closed.
var ErrClosed = errors.New("option store is closed")

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt option store requires a path")
		}
		return openBolt(path)
	case "memory":
		return newMemStore(), nil
	default:
		return nil, fmt.Errorf("unsupported option store type %q", typ)
	}
}
