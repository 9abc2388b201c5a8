package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/deployworks/deployctl/pkg/config/download"
	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/target"
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Section is the settings-document key to load. Empty means
	// DefaultSection.
	Section string

	// Downloader fetches import fragments. Nil disables imports.
	Downloader download.Downloader

	// Evaluator evaluates `if` conditions on imports. Nil treats every
	// conditional import as failing its condition evaluation.
	Evaluator expr.Evaluator

	// OverrideRoot is the workspace's logical root. When it differs from
	// the directory the settings file was found in, a local override file
	// from the override root is deep-merged over the loaded configuration.
	OverrideRoot string

	Logger *zap.Logger
}

// Loader loads workspace configuration. Loading is best-effort by design:
// a malformed import, an unreadable settings file, or a merge error degrades
// to the configuration accumulated so far instead of failing the workspace.
type Loader struct {
	section      string
	downloader   download.Downloader
	evaluator    expr.Evaluator
	overrideRoot string
	log          *zap.Logger

	// mu serializes loads; the workspace reload state machine coalesces
	// concurrent reload requests above this.
	mu sync.Mutex
}

// NewLoader creates a configuration loader.
func NewLoader(opts LoaderOptions) *Loader {
	section := opts.Section
	if section == "" {
		section = DefaultSection
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		section:      section,
		downloader:   opts.Downloader,
		evaluator:    opts.Evaluator,
		overrideRoot: opts.OverrideRoot,
		log:          log,
	}
}

// Load produces a fresh settings snapshot for the workspace rooted at
// workspaceRoot. A missing settings file is not an error; it yields an empty
// configuration.
func (l *Loader) Load(ctx context.Context, workspaceRoot string) (*Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	settingsPath, found := Discover(workspaceRoot)
	if !found {
		settingsPath = DefaultPath(workspaceRoot)
		if _, err := os.Stat(settingsPath); err != nil {
			l.log.Info("no settings file found, using empty configuration",
				zap.String("workspace", workspaceRoot))
			return &Settings{}, nil
		}
	}

	section, err := l.readSection(settingsPath)
	if err != nil {
		l.log.Warn("settings file unreadable, using empty configuration",
			zap.String("path", settingsPath),
			zap.Error(err))
		return &Settings{SourcePath: settingsPath}, nil
	}

	section = l.applyImports(ctx, section, settingsPath, workspaceRoot)
	section = l.applyLocalOverride(section, settingsPath)

	if targets, ok := section["targets"].([]interface{}); ok {
		section["targets"] = dedupeByName(targets)
	}
	if packages, ok := section["packages"].([]interface{}); ok {
		section["packages"] = dedupeByName(packages)
	}

	// Imports are consumed during loading, never retained in the snapshot.
	delete(section, "imports")

	settings, err := decodeSettings(section)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to decode configuration", err)
	}
	settings.SourcePath = settingsPath
	return settings, nil
}

// readSection reads the settings document and extracts the configured
// section. A missing section yields an empty configuration.
func (l *Loader) readSection(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(data, path)
	if err != nil {
		return nil, err
	}

	return extractSection(doc, l.section), nil
}

// applyLocalOverride merges machine-local override files over the loaded
// section. Candidates next to the settings file and in the workspace root are
// both considered; override values win on key conflicts.
func (l *Loader) applyLocalOverride(section map[string]interface{}, settingsPath string) map[string]interface{} {
	seen := map[string]bool{}
	dirs := []string{filepath.Dir(settingsPath)}
	if l.overrideRoot != "" {
		if abs, err := filepath.Abs(l.overrideRoot); err == nil {
			dirs = append(dirs, abs)
		}
	}

	for _, dir := range dirs {
		for _, name := range OverrideFileNames {
			overridePath := filepath.Join(dir, filepath.FromSlash(name))
			if seen[overridePath] {
				continue
			}
			seen[overridePath] = true

			if info, err := os.Stat(overridePath); err != nil || info.IsDir() {
				continue
			}

			override, err := l.readSection(overridePath)
			if err != nil {
				l.log.Warn("local override unreadable, skipping",
					zap.String("path", overridePath),
					zap.Error(err))
				continue
			}

			l.log.Debug("applying local settings override", zap.String("path", overridePath))
			section = deepMerge(section, override)
		}
	}
	return section
}

// applyImports resolves the section's imports list: each entry is filtered
// by its conditions, fetched, parsed, and deep-merged into the accumulator
// in declaration order so that later imports win scalar conflicts. A failed
// import is logged and skipped; it never aborts the remaining imports.
func (l *Loader) applyImports(ctx context.Context, section map[string]interface{}, settingsPath, workspaceRoot string) map[string]interface{} {
	rawImports, ok := section["imports"]
	if !ok || l.downloader == nil {
		return section
	}

	entries, err := decodeImports(rawImports)
	if err != nil {
		l.log.Warn("imports list malformed, skipping all imports",
			zap.String("path", settingsPath),
			zap.Error(err))
		return section
	}

	if l.evaluator != nil {
		filtered, err := filter.Apply(entries, l.evaluator, filter.Options{
			ItemBinding: importBinding,
		})
		if err != nil {
			l.log.Warn("import condition filtering failed", zap.Error(err))
		} else {
			entries = filtered
		}
	}

	scopes := []string{filepath.Dir(settingsPath), workspaceRoot}
	for _, entry := range entries {
		fragment, err := l.fetchImport(ctx, entry, scopes)
		if err != nil {
			l.log.Warn("import skipped", zap.String("source", entry.From), zap.Error(err))
			continue
		}
		section = deepMerge(section, fragment)
	}
	return section
}

func (l *Loader) fetchImport(ctx context.Context, entry *ImportEntry, scopes []string) (map[string]interface{}, error) {
	data, err := l.downloader.Download(ctx, entry.From, scopes)
	if err != nil {
		return nil, errors.ImportError(entry.From, err)
	}

	doc, err := parseDocument(data, entry.From)
	if err != nil {
		return nil, errors.ImportError(entry.From, err)
	}

	return extractSection(doc, l.section), nil
}

// parseDocument parses a settings document or import fragment. YAML is
// recognized by extension; everything else must be JSON.
func parseDocument(data []byte, path string) (map[string]interface{}, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var doc map[string]interface{}
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.ParseError(path, err)
		}
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.ParseError(path, err)
	}
	return doc, nil
}

// extractSection returns the named configuration section. When the document
// has no such section, the configuration is empty. Import fragments that are
// already bare sections (no wrapper key) are accepted as-is.
func extractSection(doc map[string]interface{}, section string) map[string]interface{} {
	if nested, ok := toStringMap(doc[section]); ok {
		return nested
	}
	if _, ok := doc[section]; ok {
		// Present but not an object: treat as empty.
		return map[string]interface{}{}
	}
	return doc
}

func decodeImports(raw interface{}) ([]*ImportEntry, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var entries []*ImportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func importBinding(item filter.Conditional) map[string]interface{} {
	entry, ok := item.(*ImportEntry)
	if !ok {
		return nil
	}
	return map[string]interface{}{"from": entry.From}
}

func decodeSettings(section map[string]interface{}) (*Settings, error) {
	data, err := json.Marshal(section)
	if err != nil {
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// dedupeByName drops entries whose normalized name reappears later in the
// list. The later entry wins entirely and keeps its own position; no field
// merging happens between same-named entries.
func dedupeByName(items []interface{}) []interface{} {
	lastIndex := make(map[string]int, len(items))
	for i, item := range items {
		if name, ok := entryName(item); ok {
			lastIndex[name] = i
		}
	}

	result := make([]interface{}, 0, len(items))
	for i, item := range items {
		if name, ok := entryName(item); ok && lastIndex[name] != i {
			continue
		}
		result = append(result, item)
	}
	return result
}

func entryName(item interface{}) (string, bool) {
	m, ok := toStringMap(item)
	if !ok {
		return "", false
	}
	name, ok := m["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return target.NormalizeName(name), true
}
