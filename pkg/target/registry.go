package target

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deployworks/deployctl/pkg/errors"
)

// NormalizeName normalizes a target or package name for comparison and
// identity derivation.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// identity derives a stable entity ID. Registering the same raw list twice
// for the same workspace and config source yields identical IDs.
func identity(workspaceID string, index int, name, sourcePath string) string {
	return fmt.Sprintf("%s\n%d\n%s\n%s", workspaceID, index, NormalizeName(name), sourcePath)
}

// RegisterTargets assigns identity to raw targets in array order. Switch
// option IDs are derived from the owning target's ID and the option index;
// the expansion of bare-string options happens at decode time.
func RegisterTargets(targets []*Target, ws WorkspaceRef, sourcePath string) []*Target {
	for i, t := range targets {
		t.Index = i
		t.Workspace = ws
		t.SearchValue = NormalizeName(t.Name)
		t.ID = identity(ws.ID(), i, t.Name, sourcePath)

		for j, opt := range t.SwitchOptions {
			opt.ID = t.ID + "\n" + strconv.Itoa(j)
		}
	}
	return targets
}

// RegisterPackages assigns identity to raw packages in array order.
func RegisterPackages(packages []*Package, ws WorkspaceRef, sourcePath string) []*Package {
	for i, p := range packages {
		p.Index = i
		p.Workspace = ws
		p.SearchValue = NormalizeName(p.Name)
		p.ID = identity(ws.ID(), i, p.Name, sourcePath)
	}
	return packages
}

// TargetsByName resolves each requested name to exactly one target. Both an
// unmatched name and a name matching more than one target fail the whole
// request; the caller must not proceed with a partial resolution.
func TargetsByName(names []string, all []*Target) ([]*Target, error) {
	resolved := make([]*Target, 0, len(names))
	for _, name := range names {
		normalized := NormalizeName(name)

		var matches []*Target
		for _, t := range all {
			if t.SearchValue == normalized {
				matches = append(matches, t)
			}
		}

		switch len(matches) {
		case 0:
			return nil, errors.TargetNotFound(name)
		case 1:
			resolved = append(resolved, matches[0])
		default:
			return nil, errors.AmbiguousTarget(name, len(matches))
		}
	}
	return resolved, nil
}

// PackageByName resolves a single package name with the same absence and
// ambiguity rules as TargetsByName.
func PackageByName(name string, all []*Package) (*Package, error) {
	normalized := NormalizeName(name)

	var matches []*Package
	for _, p := range all {
		if p.SearchValue == normalized {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return nil, errors.New(errors.ErrCodeTargetNotFound, fmt.Sprintf("package %q not found", name))
	case 1:
		return matches[0], nil
	default:
		return nil, errors.New(errors.ErrCodeAmbiguousTarget, fmt.Sprintf("package name %q matches %d packages", name, len(matches)))
	}
}
