package target

import (
	"context"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/state"
)

// SwitchResolver resolves the active option of switch targets and expands
// them into concrete target sets. Selections are persisted through the
// switch store and re-read on every resolution.
type SwitchResolver struct {
	store  *state.SwitchStore
	eval   expr.Evaluator
	values func() map[string]string
	log    *zap.Logger
}

// SwitchResolverOptions configures a SwitchResolver.
type SwitchResolverOptions struct {
	// Store persists option selections. Nil disables persistence.
	Store *state.SwitchStore

	// Evaluator evaluates option `if` conditions. Nil excludes conditional
	// options.
	Evaluator expr.Evaluator

	// Values supplies the `values` binding for option conditions. Optional.
	Values func() map[string]string

	Logger *zap.Logger
}

// NewSwitchResolver creates a resolver backed by the given selection store.
func NewSwitchResolver(opts SwitchResolverOptions) *SwitchResolver {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SwitchResolver{
		store:  opts.Store,
		eval:   opts.Evaluator,
		values: opts.Values,
		log:    log,
	}
}

// EligibleOptions returns the options whose conditions hold in the current
// context. Options with a failing `if` or platform restriction can neither be
// selected nor defaulted to.
func (r *SwitchResolver) EligibleOptions(t *Target) ([]*SwitchOption, error) {
	opts := filter.Options{}
	if r.values != nil {
		opts.Values = r.values()
	}
	return filter.Apply(t.SwitchOptions, r.eval, opts)
}

// SelectedOption returns the active option of a switch target:
// the persisted selection if one exists and is still eligible, else the
// eligible option flagged isDefault, else the first eligible option in
// declared order. It returns nil when no option is eligible.
func (r *SwitchResolver) SelectedOption(ctx context.Context, t *Target) (*SwitchOption, error) {
	options, err := r.EligibleOptions(t)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}

	if persisted, ok, err := r.persistedSelection(ctx, t, options); err != nil {
		return nil, err
	} else if ok {
		return persisted, nil
	}

	for _, opt := range options {
		if opt.IsDefault {
			return opt, nil
		}
	}
	return options[0], nil
}

func (r *SwitchResolver) persistedSelection(ctx context.Context, t *Target, eligible []*SwitchOption) (*SwitchOption, bool, error) {
	if r.store == nil || t.Workspace == nil {
		return nil, false, nil
	}

	optionID, ok, err := r.store.Selection(ctx, t.Workspace.ID(), t.ID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	for _, opt := range eligible {
		if opt.ID == optionID {
			return opt, true, nil
		}
	}

	// A persisted selection referring to a removed or no longer eligible
	// option is stale, not fatal.
	r.log.Warn("persisted switch selection no longer matches an eligible option",
		zap.String("target", t.Name),
		zap.String("option_id", optionID))
	return nil, false, nil
}

// ChangeOption records option as the active selection of a switch target and
// persists the whole selection collection immediately.
func (r *SwitchResolver) ChangeOption(ctx context.Context, t *Target, option *SwitchOption) error {
	if r.store == nil {
		return errors.New(errors.ErrCodeBackend, "no switch state store configured")
	}
	if t.Workspace == nil {
		return errors.New(errors.ErrCodeBackend, "switch target is not registered to a workspace")
	}
	return r.store.SetSelection(ctx, t.Workspace.ID(), t.ID, option.ID)
}

// ResolveChildren resolves the selected option's target names into concrete
// targets and rejects recursive switch chains. The returned targets may
// themselves include switch targets; the dispatcher expands those in turn.
func (r *SwitchResolver) ResolveChildren(ctx context.Context, t *Target, all []*Target) ([]*Target, error) {
	option, err := r.SelectedOption(ctx, t)
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, errors.New(errors.ErrCodeTargetNotFound, "switch target "+t.Name+" has no options")
	}

	children, err := TargetsByName(option.Targets, all)
	if err != nil {
		return nil, err
	}

	if err := r.checkRecursion(ctx, t, children, all, map[string]bool{t.ID: true}); err != nil {
		return nil, err
	}

	return children, nil
}

// checkRecursion walks the resolved child set transitively through nested
// switches and fails if the chain reaches the original switch target again.
// Cycles of length 1 (self-reference) and longer are both rejected.
func (r *SwitchResolver) checkRecursion(ctx context.Context, origin *Target, children []*Target, all []*Target, visited map[string]bool) error {
	for _, child := range children {
		if child.ID == origin.ID {
			return errors.RecursiveTarget(origin.Name)
		}
		if !child.IsSwitch() || visited[child.ID] {
			continue
		}
		visited[child.ID] = true

		option, err := r.SelectedOption(ctx, child)
		if err != nil {
			return err
		}
		if option == nil {
			continue
		}

		grandchildren, err := TargetsByName(option.Targets, all)
		if err != nil {
			// An unresolvable nested reference fails on dispatch; it cannot
			// form a cycle here.
			continue
		}
		if err := r.checkRecursion(ctx, origin, grandchildren, all, visited); err != nil {
			return err
		}
	}
	return nil
}
