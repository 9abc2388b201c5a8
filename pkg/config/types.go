// Package config loads, merges, and reactively reloads workspace
// configuration: the nearest settings file, a local override, and a chain of
// conditionally included imports, all deep-merged into one immutable
// snapshot per load.
package config

import (
	"encoding/json"

	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/target"
)

// DefaultSection is the settings-document key holding the engine's
// configuration.
const DefaultSection = "deploy"

// SettingsFileNames are the recognized settings files, checked in order in
// every directory walked from the workspace root upward.
var SettingsFileNames = []string{
	".deployctl.json",
	".deployctl/settings.json",
}

// OverrideFileNames are machine-local override files. When present next to
// the settings file or in the workspace root, their section is deep-merged
// over the loaded configuration and wins on conflicts. They are meant to stay
// out of version control.
var OverrideFileNames = []string{
	".deployctl.user.json",
	".deployctl/settings.user.json",
}

// Settings is one immutable configuration snapshot. It is replaced wholesale
// on every reload, never mutated in place.
type Settings struct {
	Targets  []*target.Target  `json:"targets,omitempty"`
	Packages []*target.Package `json:"packages,omitempty"`

	// Values defines workspace value providers for placeholder resolution.
	Values map[string]*ValueSpec `json:"values,omitempty"`

	// Auto-trigger behavior flags.
	DeployOnSave   bool `json:"deployOnSave,omitempty"`
	DeployOnChange bool `json:"deployOnChange,omitempty"`
	RemoveOnChange bool `json:"removeOnChange,omitempty"`

	// TriggerThawDelayMillis delays re-enabling auto triggers after a reload.
	TriggerThawDelayMillis int `json:"triggerThawDelay,omitempty"`

	// Ignore patterns exclude files from all operations.
	Ignore target.StringList `json:"ignore,omitempty"`

	// Startup hooks run once after a successful load.
	Startup []*target.Hook `json:"startup,omitempty"`

	// SourcePath is the settings file the snapshot was loaded from. Empty
	// for the fallback empty configuration.
	SourcePath string `json:"-"`
}

// ValueSpec declares one named value. Exactly one of Value, Env, or Code is
// normally set: a static value, an environment variable name, or an
// expression evaluated at resolution time.
type ValueSpec struct {
	Value     *string           `json:"value,omitempty"`
	Env       string            `json:"env,omitempty"`
	Code      string            `json:"code,omitempty"`
	If        target.StringList `json:"if,omitempty"`
	Platforms target.StringList `json:"platforms,omitempty"`
}

// FilterSpec implements filter.Conditional.
func (v *ValueSpec) FilterSpec() filter.Spec {
	return filter.Spec{If: v.If, Platforms: v.Platforms}
}

// ImportEntry references a configuration fragment to merge in. It unmarshals
// from either a bare source string or an object with `from` and `if`.
type ImportEntry struct {
	From      string            `json:"from"`
	If        target.StringList `json:"if,omitempty"`
	Platforms target.StringList `json:"platforms,omitempty"`
}

// FilterSpec implements filter.Conditional.
func (i *ImportEntry) FilterSpec() filter.Spec {
	return filter.Spec{If: i.If, Platforms: i.Platforms}
}

func (i *ImportEntry) UnmarshalJSON(data []byte) error {
	var from string
	if err := json.Unmarshal(data, &from); err == nil {
		*i = ImportEntry{From: from}
		return nil
	}

	type alias ImportEntry
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*i = ImportEntry(decoded)
	return nil
}
