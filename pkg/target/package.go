package target

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MatchFiles expands the package's include/exclude globs against the
// workspace root and returns the matching files as absolute paths in stable
// order. An empty Files list matches everything under the root.
func (p *Package) MatchFiles(root string) ([]string, error) {
	var matched []string

	err := filepath.WalkDir(root, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, fullPath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !matchesAny(p.Files, rel, true) {
			return nil
		}
		if matchesAny(p.Exclude, rel, false) {
			return nil
		}

		matched = append(matched, fullPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matched)
	return matched, nil
}

// MatchesFile reports whether a single slash-relative path belongs to the
// package.
func (p *Package) MatchesFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	return matchesAny(p.Files, rel, true) && !matchesAny(p.Exclude, rel, false)
}

// MatchesGlobs reports whether a slash-relative path matches any of the
// given glob patterns. An empty pattern list matches nothing.
func MatchesGlobs(patterns []string, rel string) bool {
	return matchesAny(patterns, filepath.ToSlash(rel), false)
}

// matchesAny checks a slash-relative path against a glob list. A leading
// "**/" matches at any directory depth, a trailing "/**" matches the whole
// subtree, and a bare "**" matches everything; all other patterns follow
// path.Match semantics against the full relative path.
func matchesAny(patterns []string, rel string, emptyMatches bool) bool {
	if len(patterns) == 0 {
		return emptyMatches
	}
	for _, pattern := range patterns {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, rel string) bool {
	pattern = strings.TrimPrefix(path.Clean(pattern), "./")

	if pattern == "**" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}

	if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
		// Try the suffix against the full path and against every tail.
		segments := strings.Split(rel, "/")
		for i := range segments {
			if ok, _ := path.Match(suffix, strings.Join(segments[i:], "/")); ok {
				return true
			}
		}
		return false
	}

	ok, _ := path.Match(pattern, rel)
	return ok
}
