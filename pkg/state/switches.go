// Package state persists cross-session engine state. Its one consumer today
// is the switch target resolver, which stores the selected option of every
// switch target per workspace.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/state/backend"
)

// switchStatePath is the fixed document path for switch selections. The
// prefix namespaces the document away from unrelated state.
const switchStatePath = "switches/selections.json"

// SwitchCollection maps workspaceID -> switch target ID -> selected option ID.
// It is always read and written as a whole document.
type SwitchCollection map[string]map[string]string

// SwitchStore reads and writes switch option selections through a state
// backend. Reads are always fresh; nothing is cached between calls.
type SwitchStore struct {
	backend backend.Backend
}

// NewSwitchStore creates a switch selection store on the given backend.
func NewSwitchStore(b backend.Backend) *SwitchStore {
	return &SwitchStore{backend: b}
}

// Selections loads the full selection collection. A missing document yields
// an empty collection.
func (s *SwitchStore) Selections(ctx context.Context) (SwitchCollection, error) {
	reader, err := s.backend.Read(ctx, switchStatePath)
	if err != nil {
		if stderrors.Is(err, backend.ErrNotFound) {
			return SwitchCollection{}, nil
		}
		return nil, errors.BackendError(s.backend.Type(), "read", err).WithDetail("path", switchStatePath)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.BackendError(s.backend.Type(), "read", err).WithDetail("path", switchStatePath)
	}

	var collection SwitchCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, errors.BackendError(s.backend.Type(), "parse", err).WithDetail("path", switchStatePath)
	}
	if collection == nil {
		collection = SwitchCollection{}
	}
	return collection, nil
}

// Save replaces the whole selection collection.
func (s *SwitchStore) Save(ctx context.Context, collection SwitchCollection) error {
	data, err := json.Marshal(collection)
	if err != nil {
		return errors.BackendError(s.backend.Type(), "encode", err)
	}
	if err := s.backend.Write(ctx, switchStatePath, bytes.NewReader(data)); err != nil {
		return errors.BackendError(s.backend.Type(), "write", err).WithDetail("path", switchStatePath)
	}
	return nil
}

// Selection returns the persisted option ID for a switch target, if any.
func (s *SwitchStore) Selection(ctx context.Context, workspaceID, targetID string) (string, bool, error) {
	collection, err := s.Selections(ctx)
	if err != nil {
		return "", false, err
	}
	byTarget, ok := collection[workspaceID]
	if !ok {
		return "", false, nil
	}
	optionID, ok := byTarget[targetID]
	return optionID, ok, nil
}

// SetSelection records the option selected for a switch target and persists
// the whole collection immediately.
func (s *SwitchStore) SetSelection(ctx context.Context, workspaceID, targetID, optionID string) error {
	collection, err := s.Selections(ctx)
	if err != nil {
		return err
	}
	if collection[workspaceID] == nil {
		collection[workspaceID] = make(map[string]string)
	}
	collection[workspaceID][targetID] = optionID
	return s.Save(ctx, collection)
}
