package target

import (
	"encoding/json"
)

// StringList unmarshals from either a single string or an array of strings.
// Configuration accepts both forms for `if`, `platforms`, `targets`, `files`,
// and `exclude` fields.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = StringList(many)
	return nil
}

// knownTargetKeys are the JSON keys the core interprets on a target. All
// other keys are plugin-specific and collected into Options.
var knownTargetKeys = map[string]bool{
	"name":         true,
	"type":         true,
	"description":  true,
	"if":           true,
	"platforms":    true,
	"dir":          true,
	"beforeDeploy": true,
	"deployed":     true,
	"beforeDelete": true,
	"deleted":      true,
	"beforePull":   true,
	"pulled":       true,
	"prepare":      true,
	"options":      true,
}

func (t *Target) UnmarshalJSON(data []byte) error {
	// Alias avoids recursing into this method.
	type alias Target
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	options := make(map[string]interface{})
	for key, value := range raw {
		if knownTargetKeys[key] {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		options[key] = v
	}

	*t = Target(decoded)
	t.Options = options
	return nil
}

// SwitchOption unmarshals from either a bare target-name string or a full
// option object.
func (o *SwitchOption) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*o = SwitchOption{Name: name, Targets: StringList{name}}
		return nil
	}

	type alias SwitchOption
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*o = SwitchOption(decoded)
	return nil
}

// Hook unmarshals from either a bare command string or a full hook object.
func (h *Hook) UnmarshalJSON(data []byte) error {
	var command string
	if err := json.Unmarshal(data, &command); err == nil {
		*h = Hook{Type: "exec", Command: command}
		return nil
	}

	type alias Hook
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*h = Hook(decoded)
	return nil
}
