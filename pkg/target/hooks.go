package target

// HookSet groups the hook lists of a target by lifecycle position.
type HookSet struct {
	BeforeDeploy []*Hook
	Deployed     []*Hook
	BeforeDelete []*Hook
	Deleted      []*Hook
	BeforePull   []*Hook
	Pulled       []*Hook
	Prepare      []*Hook
}

// Hooks returns the target's own hook lists.
func (t *Target) Hooks() HookSet {
	return HookSet{
		BeforeDeploy: t.BeforeDeploy,
		Deployed:     t.Deployed,
		BeforeDelete: t.BeforeDelete,
		Deleted:      t.Deleted,
		BeforePull:   t.BeforePull,
		Pulled:       t.Pulled,
		Prepare:      t.Prepare,
	}
}

// MergedHooks computes the effective hook lists of a switch target from its
// own hooks and its resolved children. "Before" lists run outer-then-inner:
// the switch's own hooks followed by each child's hooks in child order.
// "After" lists run inner-then-outer: the children's hooks flattened in
// child order, reversed as a whole, followed by the switch's own hooks.
func MergedHooks(sw *Target, children []*Target) HookSet {
	return MergeHooks(sw.Hooks(), children)
}

// MergeHooks is MergedHooks with the switch's own hook lists passed
// explicitly, so callers expanding nested switches can exclude own hooks
// that already ran at an outer level.
func MergeHooks(own HookSet, children []*Target) HookSet {
	return HookSet{
		BeforeDeploy: mergeBefore(own.BeforeDeploy, children, func(t *Target) []*Hook { return t.BeforeDeploy }),
		BeforePull:   mergeBefore(own.BeforePull, children, func(t *Target) []*Hook { return t.BeforePull }),
		BeforeDelete: mergeBefore(own.BeforeDelete, children, func(t *Target) []*Hook { return t.BeforeDelete }),
		Prepare:      mergeBefore(own.Prepare, children, func(t *Target) []*Hook { return t.Prepare }),
		Deployed:     mergeAfter(own.Deployed, children, func(t *Target) []*Hook { return t.Deployed }),
		Pulled:       mergeAfter(own.Pulled, children, func(t *Target) []*Hook { return t.Pulled }),
		Deleted:      mergeAfter(own.Deleted, children, func(t *Target) []*Hook { return t.Deleted }),
	}
}

func mergeBefore(own []*Hook, children []*Target, pick func(*Target) []*Hook) []*Hook {
	merged := make([]*Hook, 0, len(own))
	merged = append(merged, own...)
	for _, child := range children {
		merged = append(merged, pick(child)...)
	}
	return merged
}

func mergeAfter(own []*Hook, children []*Target, pick func(*Target) []*Hook) []*Hook {
	var flattened []*Hook
	for _, child := range children {
		flattened = append(flattened, pick(child)...)
	}
	for i, j := 0, len(flattened)-1; i < j; i, j = i+1, j-1 {
		flattened[i], flattened[j] = flattened[j], flattened[i]
	}
	return append(flattened, own...)
}
