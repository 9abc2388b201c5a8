package target

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/state"
	"github.com/deployworks/deployctl/pkg/state/backend/local"
)

func newTestResolver(t *testing.T) *SwitchResolver {
	t.Helper()
	b, err := local.NewBackend(map[string]string{"path": t.TempDir()})
	require.NoError(t, err)
	return NewSwitchResolver(SwitchResolverOptions{
		Store:     state.NewSwitchStore(b),
		Evaluator: expr.New(),
	})
}

func registerSwitchFixture(optionTweaks func(sw *Target)) (sw *Target, all []*Target) {
	ws := &fakeWorkspace{id: "/work/app"}
	sw = &Target{
		Name: "environment",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "dev", Targets: []string{"dev"}},
			{Name: "prod", Targets: []string{"prod"}},
		},
	}
	if optionTweaks != nil {
		optionTweaks(sw)
	}
	all = RegisterTargets([]*Target{
		sw,
		{Name: "dev", Type: "local"},
		{Name: "prod", Type: "s3"},
	}, ws, "src")
	return sw, all
}

func TestSelectedOption_FirstByDefault(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(nil)

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	require.NotNil(t, option)
	assert.Equal(t, "dev", option.Name)
}

func TestSelectedOption_IsDefaultFlagWins(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[1].IsDefault = true
	})

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	assert.Equal(t, "prod", option.Name)
}

func TestSelectedOption_PersistedSelectionWins(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[0].IsDefault = true
	})

	require.NoError(t, r.ChangeOption(context.Background(), sw, sw.SwitchOptions[1]))

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	assert.Equal(t, "prod", option.Name)
}

func TestSelectedOption_SelectionSurvivesReRegistration(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(nil)
	require.NoError(t, r.ChangeOption(context.Background(), sw, sw.SwitchOptions[1]))

	// Simulate a reload: fresh structs, same declaration.
	reloaded, _ := registerSwitchFixture(nil)

	option, err := r.SelectedOption(context.Background(), reloaded)
	require.NoError(t, err)
	assert.Equal(t, "prod", option.Name)
}

func TestSelectedOption_StaleSelectionIgnored(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(nil)
	require.NoError(t, r.store.SetSelection(context.Background(), sw.Workspace.ID(), sw.ID, "gone"))

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	assert.Equal(t, "dev", option.Name)
}

func TestSelectedOption_IneligibleOptionNeverSelected(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[0].If = StringList{"false"}
	})

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	require.NotNil(t, option)
	assert.Equal(t, "prod", option.Name)
}

func TestSelectedOption_IneligibleDefaultSkipped(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[1].IsDefault = true
		sw.SwitchOptions[1].If = StringList{"false"}
	})

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	assert.Equal(t, "dev", option.Name)
}

func TestSelectedOption_PersistedIneligibleIgnored(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(nil)
	require.NoError(t, r.ChangeOption(context.Background(), sw, sw.SwitchOptions[1]))

	// The configuration changed underneath the persisted selection: the
	// chosen option now carries a failing condition.
	reloaded, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[1].If = StringList{"false"}
	})

	option, err := r.SelectedOption(context.Background(), reloaded)
	require.NoError(t, err)
	assert.Equal(t, "dev", option.Name)
}

func TestSelectedOption_NoEligibleOptions(t *testing.T) {
	r := newTestResolver(t)
	sw, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[0].If = StringList{"false"}
		sw.SwitchOptions[1].If = StringList{"false"}
	})

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	assert.Nil(t, option)
}

func TestEligibleOptions_ValuesBinding(t *testing.T) {
	b, err := local.NewBackend(map[string]string{"path": t.TempDir()})
	require.NoError(t, err)
	r := NewSwitchResolver(SwitchResolverOptions{
		Store:     state.NewSwitchStore(b),
		Evaluator: expr.New(),
		Values: func() map[string]string {
			return map[string]string{"env": "prod"}
		},
	})
	sw, _ := registerSwitchFixture(func(sw *Target) {
		sw.SwitchOptions[0].If = StringList{`values["env"] == "dev"`}
		sw.SwitchOptions[1].If = StringList{`values["env"] == "prod"`}
	})

	options, err := r.EligibleOptions(sw)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "prod", options[0].Name)
}

func TestSelectedOption_NoOptions(t *testing.T) {
	r := newTestResolver(t)
	sw := &Target{Name: "empty", Type: TypeSwitch}

	option, err := r.SelectedOption(context.Background(), sw)
	require.NoError(t, err)
	assert.Nil(t, option)
}

func TestResolveChildren(t *testing.T) {
	r := newTestResolver(t)
	sw, all := registerSwitchFixture(nil)

	children, err := r.ResolveChildren(context.Background(), sw, all)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "dev", children[0].Name)
}

func TestResolveChildren_SelfReferenceRejected(t *testing.T) {
	r := newTestResolver(t)
	ws := &fakeWorkspace{id: "ws"}
	sw := &Target{
		Name: "loop",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "self", Targets: []string{"loop"}},
		},
	}
	all := RegisterTargets([]*Target{sw}, ws, "src")

	_, err := r.ResolveChildren(context.Background(), sw, all)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRecursiveTarget))
}

func TestResolveChildren_TransitiveCycleRejected(t *testing.T) {
	r := newTestResolver(t)
	ws := &fakeWorkspace{id: "ws"}
	a := &Target{
		Name: "a",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "toB", Targets: []string{"b"}},
		},
	}
	b := &Target{
		Name: "b",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "toA", Targets: []string{"a"}},
		},
	}
	all := RegisterTargets([]*Target{a, b}, ws, "src")

	_, err := r.ResolveChildren(context.Background(), a, all)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRecursiveTarget))
}

func TestResolveChildren_NestedSwitchAllowed(t *testing.T) {
	r := newTestResolver(t)
	ws := &fakeWorkspace{id: "ws"}
	outer := &Target{
		Name: "outer",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "viaInner", Targets: []string{"inner"}},
		},
	}
	inner := &Target{
		Name: "inner",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "toLeaf", Targets: []string{"leaf"}},
		},
	}
	all := RegisterTargets([]*Target{
		outer,
		inner,
		{Name: "leaf", Type: "local"},
	}, ws, "src")

	children, err := r.ResolveChildren(context.Background(), outer, all)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "inner", children[0].Name)
}
