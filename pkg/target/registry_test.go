package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployworks/deployctl/pkg/errors"
)

type fakeWorkspace struct {
	id   string
	root string
}

func (w *fakeWorkspace) ID() string   { return w.id }
func (w *fakeWorkspace) Root() string { return w.root }

func TestRegisterTargets_AssignsIdentity(t *testing.T) {
	ws := &fakeWorkspace{id: "/work/app"}
	targets := []*Target{
		{Name: "Staging", Type: "local"},
		{Name: "prod", Type: "s3"},
	}

	registered := RegisterTargets(targets, ws, "/work/app/.deployctl.json")

	assert.Equal(t, 0, registered[0].Index)
	assert.Equal(t, 1, registered[1].Index)
	assert.Equal(t, "staging", registered[0].SearchValue)
	assert.NotEmpty(t, registered[0].ID)
	assert.NotEqual(t, registered[0].ID, registered[1].ID)
	assert.Same(t, ws, registered[0].Workspace.(*fakeWorkspace))
}

func TestRegisterTargets_IdentityIsStableAcrossReloads(t *testing.T) {
	ws := &fakeWorkspace{id: "/work/app"}
	source := "/work/app/.deployctl.json"

	first := RegisterTargets([]*Target{{Name: "staging"}, {Name: "prod"}}, ws, source)
	second := RegisterTargets([]*Target{{Name: "staging"}, {Name: "prod"}}, ws, source)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
}

func TestRegisterTargets_IdentityDependsOnPosition(t *testing.T) {
	ws := &fakeWorkspace{id: "/work/app"}
	source := "/work/app/.deployctl.json"

	first := RegisterTargets([]*Target{{Name: "staging"}, {Name: "prod"}}, ws, source)
	swapped := RegisterTargets([]*Target{{Name: "prod"}, {Name: "staging"}}, ws, source)

	assert.NotEqual(t, first[0].ID, swapped[1].ID)
}

func TestRegisterTargets_SwitchOptionIDs(t *testing.T) {
	ws := &fakeWorkspace{id: "/work/app"}
	sw := &Target{
		Name: "env",
		Type: TypeSwitch,
		SwitchOptions: []*SwitchOption{
			{Name: "dev", Targets: []string{"dev"}},
			{Name: "prod", Targets: []string{"prod"}},
		},
	}

	RegisterTargets([]*Target{sw}, ws, "src")

	assert.NotEmpty(t, sw.SwitchOptions[0].ID)
	assert.NotEqual(t, sw.SwitchOptions[0].ID, sw.SwitchOptions[1].ID)
	assert.Contains(t, sw.SwitchOptions[0].ID, sw.ID)
}

func TestTargetsByName_CaseInsensitive(t *testing.T) {
	ws := &fakeWorkspace{id: "ws"}
	all := RegisterTargets([]*Target{{Name: "Staging"}}, ws, "src")

	resolved, err := TargetsByName([]string{"  STAGING "}, all)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Same(t, all[0], resolved[0])
}

func TestTargetsByName_NotFound(t *testing.T) {
	ws := &fakeWorkspace{id: "ws"}
	all := RegisterTargets([]*Target{{Name: "staging"}}, ws, "src")

	_, err := TargetsByName([]string{"staging", "nope"}, all)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTargetNotFound))
}

func TestTargetsByName_AmbiguousFailsWholeRequest(t *testing.T) {
	ws := &fakeWorkspace{id: "ws"}
	all := RegisterTargets([]*Target{
		{Name: "staging"},
		{Name: "Staging"},
		{Name: "prod"},
	}, ws, "src")

	_, err := TargetsByName([]string{"prod", "staging"}, all)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAmbiguousTarget))
}

func TestPackageByName(t *testing.T) {
	ws := &fakeWorkspace{id: "ws"}
	all := RegisterPackages([]*Package{{Name: "Assets"}}, ws, "src")

	pkg, err := PackageByName("assets", all)
	require.NoError(t, err)
	assert.Same(t, all[0], pkg)

	_, err = PackageByName("missing", all)
	assert.True(t, errors.Is(err, errors.ErrCodeTargetNotFound))
}
