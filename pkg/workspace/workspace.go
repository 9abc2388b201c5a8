// Package workspace ties configuration, targets, and values together for one
// workspace root. A workspace holds an immutable snapshot of its loaded
// configuration and replaces it atomically on reload; concurrent reload
// requests coalesce into a single queued retry.
package workspace

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/config"
	"github.com/deployworks/deployctl/pkg/dispatch"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/values"
)

// AutoTrigger identifies one file-event-driven behavior.
type AutoTrigger int

const (
	TriggerDeployOnSave AutoTrigger = iota
	TriggerDeployOnChange
	TriggerRemoveOnChange
)

// ConfigLoader produces a fresh settings snapshot for a workspace root.
type ConfigLoader interface {
	Load(ctx context.Context, workspaceRoot string) (*config.Settings, error)
}

// Snapshot is one immutable view of the workspace's loaded state. It is
// replaced wholesale on reload; readers keep a consistent view for as long
// as they hold it.
type Snapshot struct {
	Settings  *config.Settings
	Targets   []*target.Target
	Packages  []*target.Package
	Providers []values.Provider
}

// Listener is notified after every successful reload with the new snapshot.
type Listener func(ws *Workspace, snap *Snapshot)

// Options configures a Workspace.
type Options struct {
	// Root is the workspace directory. Required.
	Root string

	// Loader loads configuration. Required.
	Loader ConfigLoader

	// Evaluator evaluates value expressions. Optional.
	Evaluator expr.Evaluator

	// Hooks runs startup hooks after a successful load. Optional.
	Hooks dispatch.HookRunner

	Logger *zap.Logger
}

// Workspace is the unit of configuration and target identity.
type Workspace struct {
	id     string
	root   string
	loader ConfigLoader
	eval   expr.Evaluator
	hooks  dispatch.HookRunner
	log    *zap.Logger

	snapshot atomic.Pointer[Snapshot]

	mu           sync.Mutex
	reloading    bool
	retryPending bool
	frozen       map[AutoTrigger]bool
	thawTimers   map[AutoTrigger]*time.Timer
	listeners    []Listener
}

// New creates a workspace. The workspace's identity is its absolute root
// path, so target identity survives reloads and process restarts.
func New(opts Options) (*Workspace, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	w := &Workspace{
		id:         root,
		root:       root,
		loader:     opts.Loader,
		eval:       opts.Evaluator,
		hooks:      opts.Hooks,
		log:        log.With(zap.String("workspace", root)),
		frozen:     map[AutoTrigger]bool{},
		thawTimers: map[AutoTrigger]*time.Timer{},
	}
	w.snapshot.Store(&Snapshot{Settings: &config.Settings{}})
	return w, nil
}

// ID implements target.WorkspaceRef.
func (w *Workspace) ID() string {
	return w.id
}

// Root implements target.WorkspaceRef.
func (w *Workspace) Root() string {
	return w.root
}

// Snapshot returns the current state. Never nil; empty before the first
// successful reload.
func (w *Workspace) Snapshot() *Snapshot {
	return w.snapshot.Load()
}

// OnReload registers a listener called after every successful reload. A
// panicking listener is recovered and logged; it never poisons the reload.
func (w *Workspace) OnReload(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// Reload loads the configuration and swaps the snapshot. A reload requested
// while one is in flight is coalesced: any number of concurrent requests
// collapse into exactly one retry after the in-flight load finishes. On
// failure the previous snapshot is retained.
//
// Auto triggers are frozen on entry so file events caused by the reload
// itself cannot fire operations mid-swap. They thaw on success, after the
// configured delay if one is set; a failed reload leaves them frozen.
func (w *Workspace) Reload(ctx context.Context) error {
	w.mu.Lock()
	if w.reloading {
		w.retryPending = true
		w.mu.Unlock()
		return nil
	}
	w.reloading = true
	w.freezeAllLocked()
	w.mu.Unlock()

	var err error
	for {
		err = w.doReload(ctx)

		w.mu.Lock()
		if !w.retryPending {
			w.reloading = false
			w.mu.Unlock()
			break
		}
		w.retryPending = false
		w.mu.Unlock()
	}

	if err == nil {
		w.thawAll(w.Snapshot().Settings.TriggerThawDelayMillis)
	}
	return err
}

func (w *Workspace) doReload(ctx context.Context) error {
	settings, err := w.loader.Load(ctx, w.root)
	if err != nil {
		w.log.Error("configuration load failed, keeping previous snapshot", zap.Error(err))
		return err
	}

	snap := &Snapshot{
		Settings: settings,
		Targets:  target.RegisterTargets(settings.Targets, w, settings.SourcePath),
		Packages: target.RegisterPackages(settings.Packages, w, settings.SourcePath),
	}

	providers, err := settings.ValueProviders(w.eval)
	if err != nil {
		w.log.Warn("value providers unavailable", zap.Error(err))
	} else {
		snap.Providers = providers
	}

	w.snapshot.Store(snap)
	w.log.Info("configuration loaded",
		zap.Int("targets", len(snap.Targets)),
		zap.Int("packages", len(snap.Packages)),
		zap.String("source", settings.SourcePath))

	w.runStartupHooks(ctx, settings)
	w.notify(snap)
	return nil
}

func (w *Workspace) runStartupHooks(ctx context.Context, settings *config.Settings) {
	if w.hooks == nil || len(settings.Startup) == 0 {
		return
	}
	startupTarget := &target.Target{Name: "workspace", Workspace: w}
	if err := w.hooks.Run(ctx, settings.Startup, startupTarget); err != nil {
		w.log.Warn("startup hooks failed", zap.Error(err))
	}
}

func (w *Workspace) notify(snap *Snapshot) {
	w.mu.Lock()
	listeners := make([]Listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, l := range listeners {
		w.safeNotify(l, snap)
	}
}

func (w *Workspace) safeNotify(l Listener, snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("reload listener panicked", zap.Any("panic", r))
		}
	}()
	l(w, snap)
}
