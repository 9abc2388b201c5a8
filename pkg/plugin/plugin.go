// Package plugin defines the transport contract targets are dispatched
// through. Each target type is served by one plugin; plugins register
// themselves by type tag and are instantiated per target.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/target"
)

// FileInfo describes one remote entry returned by ListDirectory.
type FileInfo struct {
	Name  string
	Size  int64
	IsDir bool
}

// Capabilities declares which operations a plugin supports. The dispatcher
// rejects an operation before any file is processed when the target's plugin
// does not support it.
type Capabilities struct {
	CanUpload   bool
	CanDownload bool
	CanDelete   bool
	CanList     bool
}

// Plugin moves files between the workspace and one target. Implementations
// consume files through the operation context's cursor so cancellation is
// honored at file boundaries.
type Plugin interface {
	// Type returns the target type tag this plugin serves.
	Type() string

	Capabilities() Capabilities

	UploadFiles(ctx context.Context, op *Context) error
	DownloadFiles(ctx context.Context, op *Context) error
	DeleteFiles(ctx context.Context, op *Context) error

	// ListDirectory lists remote entries under dir, relative to the
	// target's root.
	ListDirectory(ctx context.Context, dir string) ([]FileInfo, error)
}

// Factory creates a plugin bound to one target.
type Factory func(t *target.Target, log *zap.Logger) (Plugin, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a plugin factory available under the given type tag.
// It panics when the tag is already taken; registration happens in init
// functions where a duplicate is a programming error.
func Register(typeTag string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[typeTag]; exists {
		panic(fmt.Sprintf("plugin type %q registered twice", typeTag))
	}
	registry[typeTag] = factory
}

// Create instantiates the plugin serving the target's type.
func Create(t *target.Target, log *zap.Logger) (Plugin, error) {
	registryMu.RLock()
	factory, ok := registry[t.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no plugin registered for target type %q (available: %v)", t.Type, Types())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return factory(t, log)
}

// Types returns the registered type tags, sorted.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
