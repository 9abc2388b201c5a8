package workspace

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/target"
	"github.com/deployworks/deployctl/pkg/values"
)

// RelPath converts an absolute path inside the workspace to a slash-relative
// path. It returns false for paths outside the workspace root.
func (w *Workspace) RelPath(absPath string) (string, bool) {
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Ignored reports whether a workspace-relative file is excluded from all
// operations by the ignore patterns.
func (w *Workspace) Ignored(rel string) bool {
	return target.MatchesGlobs(w.Snapshot().Settings.Ignore, rel)
}

// EligiblePackages returns the packages whose conditions hold in the current
// context. Packages with a failing `if` or platform restriction are invisible
// to file matching and operations.
func (w *Workspace) EligiblePackages() []*target.Package {
	snap := w.Snapshot()
	eligible, err := filter.Apply(snap.Packages, w.eval, filter.Options{
		Values: values.ToMap(snap.Providers),
	})
	if err != nil {
		w.log.Warn("package filtering failed", zap.Error(err))
		return nil
	}
	return eligible
}

// MatchingPackages returns the eligible packages a workspace-relative file
// belongs to.
func (w *Workspace) MatchingPackages(rel string) []*target.Package {
	var matched []*target.Package
	for _, p := range w.EligiblePackages() {
		if p.MatchesFile(rel) {
			matched = append(matched, p)
		}
	}
	return matched
}

// ResolveValue expands placeholders in a template against the workspace's
// value providers.
func (w *Workspace) ResolveValue(template string, opts values.ResolveOptions) (string, error) {
	return values.Resolve(template, w.Snapshot().Providers, opts)
}
