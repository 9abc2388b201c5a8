// Package target models deployment targets and packages, assigns them stable
// identity, resolves name references, and expands switch targets into
// concrete target sets.
package target

import (
	"strings"

	"github.com/deployworks/deployctl/pkg/filter"
)

// TypeSwitch is the type discriminator of switch targets.
const TypeSwitch = "switch"

// WorkspaceRef is a non-owning back-reference from a registered entity to
// its workspace.
type WorkspaceRef interface {
	// ID uniquely identifies the workspace.
	ID() string

	// Root is the workspace root directory.
	Root() string
}

// Target describes a named deploy/pull/delete destination. Identity fields
// (ID, Index, SearchValue, Workspace) are assigned once by the registry and
// never mutated afterwards.
type Target struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	If          StringList `json:"if,omitempty"`
	Platforms   StringList `json:"platforms,omitempty"`

	// Dir is the remote base directory for transports that have one.
	Dir string `json:"dir,omitempty"`

	// Options holds plugin-specific settings not interpreted by the core.
	Options map[string]interface{} `json:"-"`

	// Hook lists run around the transport call.
	BeforeDeploy []*Hook `json:"beforeDeploy,omitempty"`
	Deployed     []*Hook `json:"deployed,omitempty"`
	BeforeDelete []*Hook `json:"beforeDelete,omitempty"`
	Deleted      []*Hook `json:"deleted,omitempty"`
	BeforePull   []*Hook `json:"beforePull,omitempty"`
	Pulled       []*Hook `json:"pulled,omitempty"`
	Prepare      []*Hook `json:"prepare,omitempty"`

	// SwitchOptions is only populated for switch targets.
	SwitchOptions []*SwitchOption `json:"options,omitempty"`

	// Identity, assigned by the registry.
	ID          string       `json:"-"`
	Index       int          `json:"-"`
	SearchValue string       `json:"-"`
	Workspace   WorkspaceRef `json:"-"`
}

// IsSwitch reports whether the target is a switch target.
func (t *Target) IsSwitch() bool {
	return strings.EqualFold(strings.TrimSpace(t.Type), TypeSwitch)
}

// FilterSpec implements filter.Conditional.
func (t *Target) FilterSpec() filter.Spec {
	return filter.Spec{If: t.If, Platforms: t.Platforms}
}

// SwitchOption is one selectable child target set of a switch target.
type SwitchOption struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	IsDefault   bool       `json:"isDefault,omitempty"`
	Targets     StringList `json:"targets"`
	If          StringList `json:"if,omitempty"`
	Platforms   StringList `json:"platforms,omitempty"`

	// ID is derived from the owning switch target's ID and the option index.
	ID string `json:"-"`
}

// FilterSpec implements filter.Conditional.
func (o *SwitchOption) FilterSpec() filter.Spec {
	return filter.Spec{If: o.If, Platforms: o.Platforms}
}

// Label returns a human-readable name for the option.
func (o *SwitchOption) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return strings.Join(o.Targets, ", ")
}

// Hook is an operation descriptor run before or after a transport call.
type Hook struct {
	Name      string     `json:"name,omitempty"`
	Type      string     `json:"type,omitempty"`
	If        StringList `json:"if,omitempty"`
	Platforms StringList `json:"platforms,omitempty"`

	// Command and Args apply to exec hooks.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// DelayMillis applies to wait hooks.
	DelayMillis int `json:"delay,omitempty"`

	// Message applies to log hooks.
	Message string `json:"message,omitempty"`
}

// FilterSpec implements filter.Conditional.
func (h *Hook) FilterSpec() filter.Spec {
	return filter.Spec{If: h.If, Platforms: h.Platforms}
}

// Package describes a named, filterable set of local files associated with
// one or more targets. Identity assignment matches Target.
type Package struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	If          StringList `json:"if,omitempty"`
	Platforms   StringList `json:"platforms,omitempty"`

	// Files and Exclude are glob filters over workspace-relative paths.
	Files   StringList `json:"files,omitempty"`
	Exclude StringList `json:"exclude,omitempty"`

	// Targets names the targets this package deploys to.
	Targets StringList `json:"targets,omitempty"`

	// Identity, assigned by the registry.
	ID          string       `json:"-"`
	Index       int          `json:"-"`
	SearchValue string       `json:"-"`
	Workspace   WorkspaceRef `json:"-"`
}

// FilterSpec implements filter.Conditional.
func (p *Package) FilterSpec() filter.Spec {
	return filter.Spec{If: p.If, Platforms: p.Platforms}
}
