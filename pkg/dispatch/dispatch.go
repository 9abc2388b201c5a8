// Package dispatch routes file operations to targets: it filters targets by
// their conditions, expands switch targets into their selected children, runs
// lifecycle hooks, and drives each target's plugin with per-file failure
// isolation.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/plugin"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/values"
)

// Operation identifies the direction files move in.
type Operation string

const (
	OpDeploy Operation = "deploy"
	OpPull   Operation = "pull"
	OpDelete Operation = "delete"
)

// Result records the outcome for one file on one target.
type Result struct {
	Target *target.Target
	File   string
	Err    error
}

// TargetError records a target that could not be dispatched at all: no
// plugin, unsupported operation, or a failed switch resolution. Its files
// were never attempted.
type TargetError struct {
	Target *target.Target
	Err    error
}

// Summary aggregates one dispatch run.
type Summary struct {
	ID           string
	Operation    Operation
	Results      []Result
	TargetErrors []TargetError
}

// Succeeded counts file results without an error.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts file results with an error.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Options configures a Dispatcher. Plugins defaults to the global plugin
// registry.
type Options struct {
	Plugins   func(t *target.Target, log *zap.Logger) (plugin.Plugin, error)
	Switches  *target.SwitchResolver
	Hooks     HookRunner
	Evaluator expr.Evaluator
	Filter    filter.Options

	// Values supplies the providers used for the `values` binding of target
	// conditions and for ${name} expansion in target strings. Optional.
	Values func() []values.Provider

	WorkspaceRoot string
	Logger        *zap.Logger
}

// Dispatcher executes operations against targets.
type Dispatcher struct {
	plugins       func(t *target.Target, log *zap.Logger) (plugin.Plugin, error)
	switches      *target.SwitchResolver
	hooks         HookRunner
	eval          expr.Evaluator
	filterOpts    filter.Options
	values        func() []values.Provider
	workspaceRoot string
	log           *zap.Logger
}

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	plugins := opts.Plugins
	if plugins == nil {
		plugins = plugin.Create
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = NewHookRunner(HookRunnerOptions{
			Evaluator:     opts.Evaluator,
			WorkspaceRoot: opts.WorkspaceRoot,
			Values:        opts.Values,
			Logger:        log,
		})
	}
	return &Dispatcher{
		plugins:       plugins,
		switches:      opts.Switches,
		hooks:         hooks,
		eval:          opts.Evaluator,
		filterOpts:    opts.Filter,
		values:        opts.Values,
		workspaceRoot: opts.WorkspaceRoot,
		log:           log,
	}
}

// Dispatch runs the operation for every file against every eligible target.
// Targets whose conditions fail are skipped silently. A failed file never
// stops the remaining files, and a failed target never stops the remaining
// targets. all is the full registered target list, used to resolve switch
// children.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation, files []string, targets []*target.Target, all []*target.Target) (*Summary, error) {
	summary := &Summary{
		ID:        uuid.NewString(),
		Operation: op,
	}
	if len(files) == 0 {
		return summary, nil
	}

	filterOpts := d.filterOpts
	filterOpts.ItemBinding = targetBinding
	if d.values != nil {
		filterOpts.Values = values.ToMap(d.values())
	}
	eligible, err := filter.Apply(targets, d.eval, filterOpts)
	if err != nil {
		return nil, err
	}

	for _, t := range eligible {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		d.dispatchTarget(ctx, summary, op, files, t, all)
	}
	return summary, nil
}

func (d *Dispatcher) dispatchTarget(ctx context.Context, summary *Summary, op Operation, files []string, t *target.Target, all []*target.Target) {
	log := d.log.With(
		zap.String("operation", string(op)),
		zap.String("target", t.Name),
		zap.String("dispatch", summary.ID),
	)

	if t.IsSwitch() {
		d.dispatchSwitch(ctx, summary, op, files, t, t.Hooks(), all, log)
		return
	}
	d.dispatchPlain(ctx, summary, op, files, t, t.Hooks(), log)
}

// dispatchSwitch expands a switch into its selected children. The merged
// hook lists run once around the whole child sequence; the children's own
// hooks are part of the merged lists and must not run again per child.
// Nested switches recurse with empty own hooks, since theirs already ran
// as part of this level's merged lists.
func (d *Dispatcher) dispatchSwitch(ctx context.Context, summary *Summary, op Operation, files []string, t *target.Target, own target.HookSet, all []*target.Target, log *zap.Logger) {
	if d.switches == nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{
			Target: t,
			Err:    fmt.Errorf("switch target %q: no switch resolver configured", t.Name),
		})
		return
	}

	children, err := d.switches.ResolveChildren(ctx, t, all)
	if err != nil {
		log.Warn("switch resolution failed", zap.Error(err))
		summary.TargetErrors = append(summary.TargetErrors, TargetError{Target: t, Err: err})
		return
	}
	if len(children) == 0 {
		log.Debug("switch has no selected children, skipping")
		return
	}

	hooks := target.MergeHooks(own, children)
	if err := d.runHooks(ctx, beforeHooks(hooks, op), t, log); err != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{Target: t, Err: err})
		return
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return
		}
		childLog := log.With(zap.String("child", child.Name))
		if child.IsSwitch() {
			d.dispatchSwitch(ctx, summary, op, files, child, target.HookSet{}, all, childLog)
			continue
		}
		d.dispatchPlain(ctx, summary, op, files, child, target.HookSet{}, childLog)
	}

	if err := d.runHooks(ctx, afterHooks(hooks, op), t, log); err != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{Target: t, Err: err})
	}
}

// dispatchPlain drives one non-switch target. Setup failures (plugin
// creation, capability check, before hooks) abort only this target; per-file
// errors are recorded and the remaining files continue.
func (d *Dispatcher) dispatchPlain(ctx context.Context, summary *Summary, op Operation, files []string, t *target.Target, hooks target.HookSet, log *zap.Logger) {
	t = d.resolveTarget(t, log)

	p, err := d.plugins(t, log)
	if err != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{
			Target: t,
			Err:    errors.PluginError(t.Type, "create", err),
		})
		return
	}

	if err := checkCapability(p, op); err != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{Target: t, Err: err})
		return
	}

	if err := d.runHooks(ctx, beforeHooks(hooks, op), t, log); err != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{Target: t, Err: err})
		return
	}

	opCtx := plugin.NewContext(t, d.workspaceRoot, files)
	opCtx.OnFileDone = func(file string, err error) {
		if err != nil {
			log.Warn("file failed", zap.String("file", file), zap.Error(err))
		} else {
			log.Debug("file done", zap.String("file", file))
		}
		summary.Results = append(summary.Results, Result{Target: t, File: file, Err: err})
	}

	stop := cancelOnDone(ctx, opCtx)
	defer stop()

	var opErr error
	switch op {
	case OpDeploy:
		opErr = p.UploadFiles(ctx, opCtx)
	case OpPull:
		opErr = p.DownloadFiles(ctx, opCtx)
	case OpDelete:
		opErr = p.DeleteFiles(ctx, opCtx)
	}
	if opErr != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{
			Target: t,
			Err:    errors.TransportError(t.Type, string(op), opErr),
		})
	}

	// After hooks run even when the transport failed partway, so cleanup
	// steps still get their turn.
	if err := d.runHooks(ctx, afterHooks(hooks, op), t, log); err != nil {
		summary.TargetErrors = append(summary.TargetErrors, TargetError{Target: t, Err: err})
	}
}

// resolveTarget expands ${name} placeholders in the target strings a plugin
// consumes. The registered target is never mutated; resolution works on a
// shallow copy built per dispatch so live value providers are re-read every
// run.
func (d *Dispatcher) resolveTarget(t *target.Target, log *zap.Logger) *target.Target {
	if d.values == nil {
		return t
	}
	providers := d.values()
	if len(providers) == 0 {
		return t
	}

	resolve := func(s string) string {
		if s == "" {
			return s
		}
		resolved, err := values.Resolve(s, providers, values.ResolveOptions{})
		if err != nil {
			log.Warn("placeholder resolution failed", zap.String("template", s), zap.Error(err))
			return s
		}
		return resolved
	}

	clone := *t
	clone.Dir = resolve(t.Dir)
	if len(t.Options) > 0 {
		opts := make(map[string]interface{}, len(t.Options))
		for k, v := range t.Options {
			if s, ok := v.(string); ok {
				opts[k] = resolve(s)
			} else {
				opts[k] = v
			}
		}
		clone.Options = opts
	}
	return &clone
}

func (d *Dispatcher) runHooks(ctx context.Context, hooks []*target.Hook, t *target.Target, log *zap.Logger) error {
	if len(hooks) == 0 || d.hooks == nil {
		return nil
	}
	return d.hooks.Run(ctx, hooks, t)
}

func checkCapability(p plugin.Plugin, op Operation) error {
	caps := p.Capabilities()
	supported := false
	switch op {
	case OpDeploy:
		supported = caps.CanUpload
	case OpPull:
		supported = caps.CanDownload
	case OpDelete:
		supported = caps.CanDelete
	}
	if !supported {
		return fmt.Errorf("plugin %q does not support %s", p.Type(), op)
	}
	return nil
}

func beforeHooks(hooks target.HookSet, op Operation) []*target.Hook {
	var list []*target.Hook
	list = append(list, hooks.Prepare...)
	switch op {
	case OpDeploy:
		list = append(list, hooks.BeforeDeploy...)
	case OpPull:
		list = append(list, hooks.BeforePull...)
	case OpDelete:
		list = append(list, hooks.BeforeDelete...)
	}
	return list
}

func afterHooks(hooks target.HookSet, op Operation) []*target.Hook {
	switch op {
	case OpDeploy:
		return hooks.Deployed
	case OpPull:
		return hooks.Pulled
	case OpDelete:
		return hooks.Deleted
	}
	return nil
}

func targetBinding(item filter.Conditional) map[string]interface{} {
	t, ok := item.(*target.Target)
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"name": t.Name,
		"type": t.Type,
	}
}

// cancelOnDone propagates context cancellation to the operation cursor so
// plugins stop at the next file boundary.
func cancelOnDone(ctx context.Context, op *plugin.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			op.Cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
