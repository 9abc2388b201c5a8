package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/values"
)

// HookRunner executes a target's lifecycle hooks in order.
type HookRunner interface {
	Run(ctx context.Context, hooks []*target.Hook, t *target.Target) error
}

// HookRunnerOptions configures the default hook runner.
type HookRunnerOptions struct {
	// Evaluator evaluates hook `if` conditions. Optional.
	Evaluator expr.Evaluator

	// WorkspaceRoot is the working directory of exec hooks.
	WorkspaceRoot string

	// Values supplies the providers used to expand ${name} placeholders in
	// hook commands, arguments, and messages, and the `values` binding for
	// hook conditions. Optional.
	Values func() []values.Provider

	Logger *zap.Logger
}

type hookRunner struct {
	eval          expr.Evaluator
	workspaceRoot string
	values        func() []values.Provider
	log           *zap.Logger
}

// NewHookRunner creates the default hook runner. It supports exec hooks
// (a command run in the workspace root), wait hooks (a fixed delay), and log
// hooks (a message through the logger). Hooks with failing conditions are
// skipped.
func NewHookRunner(opts HookRunnerOptions) HookRunner {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &hookRunner{
		eval:          opts.Evaluator,
		workspaceRoot: opts.WorkspaceRoot,
		values:        opts.Values,
		log:           log,
	}
}

func (r *hookRunner) Run(ctx context.Context, hooks []*target.Hook, t *target.Target) error {
	filterOpts := filter.Options{ItemBinding: hookBinding}
	if r.values != nil {
		filterOpts.Values = values.ToMap(r.values())
	}
	eligible, err := filter.Apply(hooks, r.eval, filterOpts)
	if err != nil {
		return err
	}

	for _, hook := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runOne(ctx, hook, t); err != nil {
			return fmt.Errorf("hook %s failed for target %q: %w", hookLabel(hook), t.Name, err)
		}
	}
	return nil
}

func (r *hookRunner) runOne(ctx context.Context, hook *target.Hook, t *target.Target) error {
	switch hook.Type {
	case "", "exec":
		return r.runExec(ctx, hook)
	case "wait":
		return r.runWait(ctx, hook)
	case "log":
		r.log.Info(r.resolve(hook.Message),
			zap.String("hook", hookLabel(hook)),
			zap.String("target", t.Name))
		return nil
	default:
		return fmt.Errorf("unknown hook type %q", hook.Type)
	}
}

func (r *hookRunner) runExec(ctx context.Context, hook *target.Hook) error {
	if hook.Command == "" {
		return fmt.Errorf("exec hook has no command")
	}

	args := make([]string, len(hook.Args))
	for i, arg := range hook.Args {
		args[i] = r.resolve(arg)
	}

	cmd := exec.CommandContext(ctx, r.resolve(hook.Command), args...)
	cmd.Dir = r.workspaceRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// resolve expands ${name} placeholders in a hook string. Unresolved
// placeholders stay intact rather than failing the hook.
func (r *hookRunner) resolve(s string) string {
	if r.values == nil || s == "" {
		return s
	}
	resolved, err := values.Resolve(s, r.values(), values.ResolveOptions{})
	if err != nil {
		r.log.Warn("placeholder resolution failed", zap.String("template", s), zap.Error(err))
		return s
	}
	return resolved
}

func (r *hookRunner) runWait(ctx context.Context, hook *target.Hook) error {
	delay := time.Duration(hook.DelayMillis) * time.Millisecond
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func hookBinding(item filter.Conditional) map[string]interface{} {
	h, ok := item.(*target.Hook)
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"name": h.Name,
		"type": h.Type,
	}
}

func hookLabel(h *target.Hook) string {
	if h.Name != "" {
		return h.Name
	}
	if h.Type != "" {
		return h.Type
	}
	return "exec"
}
