// Package backend defines the persisted key-value storage abstraction used
// for cross-session state such as switch option selections.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNotFound is returned when a state path does not exist.
var ErrNotFound = errors.New("state not found")

// Backend stores opaque documents under slash-separated paths.
type Backend interface {
	// Type returns the backend identifier (e.g., "local", "s3")
	Type() string

	// Read opens the document at path. Returns ErrNotFound when absent.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write replaces the document at path with data.
	Write(ctx context.Context, path string, data io.Reader) error

	// Delete removes the document at path. Deleting a missing path is not
	// an error.
	Delete(ctx context.Context, path string) error

	// List returns all document paths under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Factory creates a backend from its configuration.
type Factory func(config map[string]string) (Backend, error)

// Config selects and configures a backend.
type Config struct {
	Type     string
	Settings map[string]string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend factory available by name. Backend packages call
// this from init().
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Create instantiates the backend named by config.Type.
func Create(config Config) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[config.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown state backend type %q", config.Type)
	}
	return factory(config.Settings)
}
