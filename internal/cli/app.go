package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deployworks/deployctl/pkg/config"
	"github.com/deployworks/deployctl/pkg/config/download"
	"github.com/deployworks/deployctl/pkg/dispatch"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/state"
	"github.com/deployworks/deployctl/pkg/state/backend"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/values"
	"github.com/deployworks/deployctl/pkg/workspace"
)

// app wires the workspace, switch resolver, and dispatcher for one command
// invocation.
type app struct {
	ws       *workspace.Workspace
	switches *target.SwitchResolver
	disp     *dispatch.Dispatcher
	log      *zap.Logger
}

// newApp builds the command runtime from the global flags and performs the
// initial configuration load.
func newApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := configureLogging(verbose)
	if err != nil {
		return nil, err
	}

	root := viper.GetString("workspace")
	section, _ := cmd.Flags().GetString("section")
	backendType := viper.GetString("backend")
	backendConfig, _ := cmd.Flags().GetStringArray("backend-config")

	be, err := backend.Create(backend.Config{
		Type:     backendType,
		Settings: parseKeyValues(backendConfig),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create state backend: %w", err)
	}

	eval := expr.New()
	loader := config.NewLoader(config.LoaderOptions{
		Section:      section,
		Downloader:   download.New(download.Options{Logger: log}),
		Evaluator:    eval,
		OverrideRoot: root,
		Logger:       log,
	})

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// The hook runner and dispatcher read value providers through the
	// workspace snapshot, so live values follow every reload.
	var ws *workspace.Workspace
	providers := func() []values.Provider {
		if ws == nil {
			return nil
		}
		return ws.Snapshot().Providers
	}
	hooks := dispatch.NewHookRunner(dispatch.HookRunnerOptions{
		Evaluator:     eval,
		WorkspaceRoot: absRoot,
		Values:        providers,
		Logger:        log,
	})

	ws, err = workspace.New(workspace.Options{
		Root:      absRoot,
		Loader:    loader,
		Evaluator: eval,
		Hooks:     hooks,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	switches := target.NewSwitchResolver(target.SwitchResolverOptions{
		Store:     state.NewSwitchStore(be),
		Evaluator: eval,
		Values:    func() map[string]string { return values.ToMap(providers()) },
		Logger:    log,
	})
	disp := dispatch.New(dispatch.Options{
		Switches:      switches,
		Hooks:         hooks,
		Evaluator:     eval,
		Values:        providers,
		WorkspaceRoot: ws.Root(),
		Logger:        log,
	})

	if err := ws.Reload(cmd.Context()); err != nil {
		return nil, err
	}

	return &app{ws: ws, switches: switches, disp: disp, log: log}, nil
}

func configureLogging(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level.SetLevel(zapcore.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level.SetLevel(zapcore.WarnLevel)
		cfg.Encoding = "console"
	}
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

func absOrJoin(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func parseKeyValues(pairs []string) map[string]string {
	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		settings[key] = value
	}
	return settings
}

// resolveFiles determines the files an operation applies to: explicit file
// arguments resolved relative to the workspace, or a package's glob
// expansion, or every file in the workspace.
func (a *app) resolveFiles(args []string, packageName string) ([]string, error) {
	if packageName != "" {
		pkg, err := target.PackageByName(packageName, a.ws.EligiblePackages())
		if err != nil {
			return nil, err
		}
		matched, err := pkg.MatchFiles(a.ws.Root())
		if err != nil {
			return nil, err
		}
		return a.relativize(matched)
	}

	if len(args) > 0 {
		files := make([]string, 0, len(args))
		for _, arg := range args {
			rel, ok := a.ws.RelPath(absOrJoin(a.ws.Root(), arg))
			if !ok {
				return nil, fmt.Errorf("file %q is outside the workspace", arg)
			}
			if a.ws.Ignored(rel) {
				continue
			}
			files = append(files, rel)
		}
		return files, nil
	}

	everything := &target.Package{}
	matched, err := everything.MatchFiles(a.ws.Root())
	if err != nil {
		return nil, err
	}
	return a.relativize(matched)
}

func (a *app) relativize(absFiles []string) ([]string, error) {
	files := make([]string, 0, len(absFiles))
	for _, f := range absFiles {
		rel, ok := a.ws.RelPath(f)
		if !ok || a.ws.Ignored(rel) {
			continue
		}
		files = append(files, rel)
	}
	return files, nil
}

// selectTargets resolves name arguments against the registry, defaulting to
// every registered target when no names are given.
func (a *app) selectTargets(names []string) ([]*target.Target, error) {
	all := a.ws.Snapshot().Targets
	if len(names) == 0 {
		return all, nil
	}
	return target.TargetsByName(names, all)
}

// runOperation dispatches one operation and reports the summary.
func (a *app) runOperation(ctx context.Context, op dispatch.Operation, files []string, targetNames []string) error {
	targets, err := a.selectTargets(targetNames)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets configured")
	}

	summary, err := a.disp.Dispatch(ctx, op, files, targets, a.ws.Snapshot().Targets)
	if err != nil {
		return err
	}

	for _, te := range summary.TargetErrors {
		fmt.Printf("target %s failed: %v\n", te.Target.Name, te.Err)
	}
	fmt.Printf("%s: %d file(s) succeeded, %d failed\n", op, summary.Succeeded(), summary.Failed())

	if summary.Failed() > 0 || len(summary.TargetErrors) > 0 {
		return fmt.Errorf("%s completed with errors", op)
	}
	return nil
}
