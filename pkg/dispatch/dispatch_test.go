package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/plugin"
	"github.com/deployworks/deployctl/pkg/state"
	"github.com/deployworks/deployctl/pkg/state/backend/local"
	"github.com/deployworks/deployctl/pkg/target"
)

type fakeWorkspace struct{ id string }

func (w *fakeWorkspace) ID() string   { return w.id }
func (w *fakeWorkspace) Root() string { return "/work" }

// fakePlugin processes the cursor and fails the files listed in failOn.
// batchErr, when set, is returned after the cursor drains, as a transport
// would on a dropped connection.
type fakePlugin struct {
	typeTag   string
	caps      plugin.Capabilities
	failOn    map[string]bool
	processed []string
	cancelAt  string
	batchErr  error
}

func (p *fakePlugin) Type() string { return p.typeTag }

func (p *fakePlugin) Capabilities() plugin.Capabilities { return p.caps }

func (p *fakePlugin) UploadFiles(ctx context.Context, op *plugin.Context) error {
	return p.run(op)
}
func (p *fakePlugin) DownloadFiles(ctx context.Context, op *plugin.Context) error {
	return p.run(op)
}
func (p *fakePlugin) DeleteFiles(ctx context.Context, op *plugin.Context) error {
	return p.run(op)
}
func (p *fakePlugin) ListDirectory(ctx context.Context, dir string) ([]plugin.FileInfo, error) {
	return nil, nil
}

func (p *fakePlugin) run(op *plugin.Context) error {
	for {
		file, ok := op.Next()
		if !ok {
			return p.batchErr
		}
		if err := op.BeforeFile(file); err != nil {
			op.FileDone(file, err)
			continue
		}

		p.processed = append(p.processed, file)
		var err error
		if p.failOn[file] {
			err = fmt.Errorf("failed to process %s", file)
		}
		op.FileDone(file, err)

		if p.cancelAt == file {
			op.Cancel()
		}
	}
}

// recordingHookRunner records the names of every hook it runs.
type recordingHookRunner struct {
	ran []string
}

func (r *recordingHookRunner) Run(ctx context.Context, hooks []*target.Hook, t *target.Target) error {
	for _, h := range hooks {
		r.ran = append(r.ran, h.Name)
	}
	return nil
}

func fixedPlugins(p plugin.Plugin) func(*target.Target, *zap.Logger) (plugin.Plugin, error) {
	return func(*target.Target, *zap.Logger) (plugin.Plugin, error) { return p, nil }
}

func allCaps() plugin.Capabilities {
	return plugin.Capabilities{CanUpload: true, CanDownload: true, CanDelete: true, CanList: true}
}

func registerAll(targets ...*target.Target) []*target.Target {
	return target.RegisterTargets(targets, &fakeWorkspace{id: "ws"}, "src")
}

func newSwitchResolver(t *testing.T) *target.SwitchResolver {
	t.Helper()
	b, err := local.NewBackend(map[string]string{"path": t.TempDir()})
	require.NoError(t, err)
	return target.NewSwitchResolver(target.SwitchResolverOptions{
		Store:     state.NewSwitchStore(b),
		Evaluator: expr.New(),
	})
}

func TestDispatch_PerFileFailureIsolation(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps(), failOn: map[string]bool{"b.txt": true}}
	all := registerAll(&target.Target{Name: "t1", Type: "fake"})

	d := New(Options{Plugins: fixedPlugins(p), Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"a.txt", "b.txt", "c.txt"}, all, all)
	require.NoError(t, err)

	assert.Len(t, summary.Results, 3)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, p.processed)
	assert.Empty(t, summary.TargetErrors)
}

func TestDispatch_TargetFailureDoesNotStopOthers(t *testing.T) {
	good := &fakePlugin{typeTag: "good", caps: allCaps()}
	plugins := func(tg *target.Target, _ *zap.Logger) (plugin.Plugin, error) {
		if tg.Type == "broken" {
			return nil, fmt.Errorf("no such transport")
		}
		return good, nil
	}
	all := registerAll(
		&target.Target{Name: "bad", Type: "broken"},
		&target.Target{Name: "ok", Type: "good"},
	)

	d := New(Options{Plugins: plugins, Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"f"}, all, all)
	require.NoError(t, err)

	require.Len(t, summary.TargetErrors, 1)
	assert.Equal(t, "bad", summary.TargetErrors[0].Target.Name)
	assert.True(t, errors.Is(summary.TargetErrors[0].Err, errors.ErrCodePlugin))
	assert.Len(t, summary.Results, 1)
	assert.Equal(t, 1, summary.Succeeded())
}

func TestDispatch_UnsupportedOperationRejectedUpFront(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: plugin.Capabilities{CanUpload: true}}
	all := registerAll(&target.Target{Name: "t1", Type: "fake"})

	d := New(Options{Plugins: fixedPlugins(p), Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDelete, []string{"a", "b"}, all, all)
	require.NoError(t, err)

	require.Len(t, summary.TargetErrors, 1)
	assert.Empty(t, summary.Results)
	assert.Empty(t, p.processed)
}

func TestDispatch_ConditionalTargetSkipped(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	all := registerAll(
		&target.Target{Name: "on", Type: "fake", If: target.StringList{"true"}},
		&target.Target{Name: "off", Type: "fake", If: target.StringList{"false"}},
	)

	d := New(Options{Plugins: fixedPlugins(p), Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"f"}, all, all)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "on", summary.Results[0].Target.Name)
}

func TestDispatch_CancellationStopsAtFileBoundary(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps(), cancelAt: "a"}
	all := registerAll(&target.Target{Name: "t1", Type: "fake"})

	d := New(Options{Plugins: fixedPlugins(p), Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"a", "b", "c"}, all, all)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, p.processed)
	assert.Len(t, summary.Results, 1)
}

func TestDispatch_EmptyFileList(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	all := registerAll(&target.Target{Name: "t1", Type: "fake"})

	d := New(Options{Plugins: fixedPlugins(p), Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDeploy, nil, all, all)
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
	assert.Empty(t, p.processed)
}

func TestDispatch_SwitchExpansion(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	sw := &target.Target{
		Name: "env",
		Type: target.TypeSwitch,
		SwitchOptions: []*target.SwitchOption{
			{Name: "both", Targets: []string{"a", "b"}},
		},
	}
	all := registerAll(
		sw,
		&target.Target{Name: "a", Type: "fake"},
		&target.Target{Name: "b", Type: "fake"},
	)

	d := New(Options{
		Plugins:   fixedPlugins(p),
		Switches:  newSwitchResolver(t),
		Evaluator: expr.New(),
	})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"f"}, []*target.Target{sw}, all)
	require.NoError(t, err)

	// One result per child.
	assert.Len(t, summary.Results, 2)
	assert.Equal(t, []string{"f", "f"}, p.processed)
}

func TestDispatch_SwitchHooksRunOnceMerged(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	hooks := &recordingHookRunner{}
	sw := &target.Target{
		Name:         "env",
		Type:         target.TypeSwitch,
		BeforeDeploy: []*target.Hook{{Name: "s-before"}},
		Deployed:     []*target.Hook{{Name: "s1"}},
		SwitchOptions: []*target.SwitchOption{
			{Name: "both", Targets: []string{"a", "b"}},
		},
	}
	all := registerAll(
		sw,
		&target.Target{Name: "a", Type: "fake", Deployed: []*target.Hook{{Name: "a1"}, {Name: "a2"}}},
		&target.Target{Name: "b", Type: "fake", Deployed: []*target.Hook{{Name: "b1"}}},
	)

	d := New(Options{
		Plugins:   fixedPlugins(p),
		Switches:  newSwitchResolver(t),
		Hooks:     hooks,
		Evaluator: expr.New(),
	})
	_, err := d.Dispatch(context.Background(), OpDeploy, []string{"f"}, []*target.Target{sw}, all)
	require.NoError(t, err)

	// The children's own hooks run only as part of the merged lists, never a
	// second time per child.
	assert.Equal(t, []string{"s-before", "b1", "a2", "a1", "s1"}, hooks.ran)
}

func TestDispatch_NestedSwitch(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	hooks := &recordingHookRunner{}
	outer := &target.Target{
		Name:     "outer",
		Type:     target.TypeSwitch,
		Deployed: []*target.Hook{{Name: "o1"}},
		SwitchOptions: []*target.SwitchOption{
			{Name: "opt", Targets: []string{"inner"}},
		},
	}
	inner := &target.Target{
		Name:     "inner",
		Type:     target.TypeSwitch,
		Deployed: []*target.Hook{{Name: "i1"}},
		SwitchOptions: []*target.SwitchOption{
			{Name: "opt", Targets: []string{"leaf"}},
		},
	}
	all := registerAll(
		outer,
		inner,
		&target.Target{Name: "leaf", Type: "fake", Deployed: []*target.Hook{{Name: "l1"}}},
	)

	d := New(Options{
		Plugins:   fixedPlugins(p),
		Switches:  newSwitchResolver(t),
		Hooks:     hooks,
		Evaluator: expr.New(),
	})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"f"}, []*target.Target{outer}, all)
	require.NoError(t, err)

	assert.Len(t, summary.Results, 1)
	assert.Equal(t, "leaf", summary.Results[0].Target.Name)
	// Inner-to-outer: the leaf's hook at the inner level, then the inner
	// switch's own hook and the outer one at the outer level.
	assert.Equal(t, []string{"l1", "i1", "o1"}, hooks.ran)
}

func TestDispatch_RecursiveSwitchFailsThatTargetOnly(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	sw := &target.Target{
		Name: "loop",
		Type: target.TypeSwitch,
		SwitchOptions: []*target.SwitchOption{
			{Name: "self", Targets: []string{"loop"}},
		},
	}
	all := registerAll(sw, &target.Target{Name: "plain", Type: "fake"})

	d := New(Options{
		Plugins:   fixedPlugins(p),
		Switches:  newSwitchResolver(t),
		Evaluator: expr.New(),
	})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"f"}, all, all)
	require.NoError(t, err)

	require.Len(t, summary.TargetErrors, 1)
	assert.Equal(t, "loop", summary.TargetErrors[0].Target.Name)
	assert.Len(t, summary.Results, 1) // plain target still ran
}

func TestDispatch_AfterHooksRunOnTransportError(t *testing.T) {
	p := &fakePlugin{typeTag: "flaky", caps: allCaps(), batchErr: fmt.Errorf("connection dropped")}
	hooks := &recordingHookRunner{}
	all := registerAll(&target.Target{
		Name:     "t1",
		Type:     "flaky",
		Deployed: []*target.Hook{{Name: "cleanup"}},
	})

	d := New(Options{Plugins: fixedPlugins(p), Hooks: hooks, Evaluator: expr.New()})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"a.txt"}, all, all)
	require.NoError(t, err)

	require.Len(t, summary.TargetErrors, 1)
	assert.True(t, errors.Is(summary.TargetErrors[0].Err, errors.ErrCodeTransport))
	assert.Contains(t, hooks.ran, "cleanup")
}

func TestDispatch_ValuesBindTargetConditions(t *testing.T) {
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	all := registerAll(
		&target.Target{Name: "prod", Type: "fake", If: target.StringList{`values["env"] == "prod"`}},
		&target.Target{Name: "dev", Type: "fake", If: target.StringList{`values["env"] == "dev"`}},
	)

	d := New(Options{
		Plugins:   fixedPlugins(p),
		Evaluator: expr.New(),
		Values:    staticValues(map[string]string{"env": "prod"}),
	})
	summary, err := d.Dispatch(context.Background(), OpDeploy, []string{"a.txt"}, all, all)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "prod", summary.Results[0].Target.Name)
}

func TestDispatch_ResolvesTargetStrings(t *testing.T) {
	var seen *target.Target
	p := &fakePlugin{typeTag: "fake", caps: allCaps()}
	plugins := func(tg *target.Target, _ *zap.Logger) (plugin.Plugin, error) {
		seen = tg
		return p, nil
	}
	declared := &target.Target{
		Name:    "assets",
		Type:    "fake",
		Dir:     "releases/${env}",
		Options: map[string]interface{}{"bucket": "${env}-assets", "retries": 3},
	}
	all := registerAll(declared)

	d := New(Options{
		Plugins:   plugins,
		Evaluator: expr.New(),
		Values:    staticValues(map[string]string{"env": "prod"}),
	})
	_, err := d.Dispatch(context.Background(), OpDeploy, []string{"a.txt"}, all, all)
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "releases/prod", seen.Dir)
	assert.Equal(t, "prod-assets", seen.Options["bucket"])
	assert.Equal(t, 3, seen.Options["retries"])
	// The registered target keeps its declared strings.
	assert.Equal(t, "releases/${env}", declared.Dir)
	assert.Equal(t, "${env}-assets", declared.Options["bucket"])
}
