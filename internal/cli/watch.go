package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/config"
	"github.com/deployworks/deployctl/pkg/dispatch"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/workspace"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the workspace and react to file changes",
		Long: `Watch the workspace for file changes. Settings file changes reload
the configuration; other changes fire the configured auto triggers
(deployOnSave, deployOnChange, removeOnChange) for the packages the changed
file belongs to.

Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, app)
		},
	}

	return cmd
}

func watch(ctx context.Context, app *app) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watchTree(watcher, app.ws.Root()); err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", app.ws.Root())

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleEvent(ctx, app, watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			app.log.Warn("watch error", zap.Error(err))
		}
	}
}

func handleEvent(ctx context.Context, app *app, watcher *fsnotify.Watcher, event fsnotify.Event) {
	rel, ok := app.ws.RelPath(event.Name)
	if !ok {
		return
	}

	// New directories join the watch so nested changes keep arriving.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = watchTree(watcher, event.Name)
			return
		}
	}

	if isSettingsPath(rel) {
		app.log.Info("settings changed, reloading", zap.String("file", rel))
		if err := app.ws.Reload(ctx); err != nil {
			app.log.Warn("reload failed", zap.Error(err))
		}
		return
	}

	if app.ws.Ignored(rel) {
		return
	}

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		if app.ws.TriggerEnabled(workspace.TriggerDeployOnChange) ||
			app.ws.TriggerEnabled(workspace.TriggerDeployOnSave) {
			autoDispatch(ctx, app, dispatch.OpDeploy, rel)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if app.ws.TriggerEnabled(workspace.TriggerRemoveOnChange) {
			autoDispatch(ctx, app, dispatch.OpDelete, rel)
		}
	}
}

// autoDispatch routes one changed file to the targets named by the packages
// it belongs to. Files outside every package are left alone.
func autoDispatch(ctx context.Context, app *app, op dispatch.Operation, rel string) {
	packages := app.ws.MatchingPackages(rel)
	if len(packages) == 0 {
		return
	}

	var names []string
	seen := map[string]bool{}
	for _, pkg := range packages {
		for _, name := range pkg.Targets {
			normalized := target.NormalizeName(name)
			if !seen[normalized] {
				seen[normalized] = true
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return
	}

	app.log.Info("auto trigger",
		zap.String("operation", string(op)),
		zap.String("file", rel),
		zap.Strings("targets", names))

	if err := app.runOperation(ctx, op, []string{rel}, names); err != nil {
		app.log.Warn("auto trigger failed", zap.String("file", rel), zap.Error(err))
	}
}

func isSettingsPath(rel string) bool {
	for _, candidate := range config.SettingsFileNames {
		if rel == filepath.ToSlash(candidate) {
			return true
		}
	}
	for _, candidate := range config.OverrideFileNames {
		if rel == filepath.ToSlash(candidate) {
			return true
		}
	}
	return false
}

func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name == ".git" || strings.HasPrefix(name, ".git") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}
