// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/resource"
)

type (
	// Delta is the declarative form of a definition.
	//
	// It is applied in field order: Unset, then Set, then Prepend, then
	// Append. Values may reference variables as $NAME or ${NAME}. Set values
	// are expanded against the environment after Unset, all at once, so they
	// cannot see each other. Prepend and Append entries are expanded after
	// every Set has been applied.
	Delta struct {
		Unset   []string            `json:"unset,omitempty" toml:"unset,omitempty"`
		Set     map[string]string   `json:"set,omitempty" toml:"set,omitempty"`
		Prepend map[string][]string `json:"prepend,omitempty" toml:"prepend,omitempty"`
		Append  map[string][]string `json:"append,omitempty" toml:"append,omitempty"`
	}

	deltaDefinition struct {
		kind  resource.Kind
		path  resource.DefinitionPath
		delta Delta
	}
)

// Apply mutates snap according to the delta.
func (d *Delta) Apply(snap *env.Snapshot) error {
	for _, name := range d.Unset {
		snap.Unset(name)
	}

	values := make(map[string]string, len(d.Set))
	for name, raw := range d.Set {
		v, err := expandValue(snap, raw)
		if err != nil {
			return fmt.Errorf("set.%s: %w", name, err)
		}
		values[name] = v
	}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		snap.Set(name, values[name])
	}

	for _, name := range slices.Sorted(maps.Keys(d.Prepend)) {
		entries, err := expandAll(snap, d.Prepend[name])
		if err != nil {
			return fmt.Errorf("prepend.%s: %w", name, err)
		}
		snap.PrependList(name, entries...)
	}
	for _, name := range slices.Sorted(maps.Keys(d.Append)) {
		entries, err := expandAll(snap, d.Append[name])
		if err != nil {
			return fmt.Errorf("append.%s: %w", name, err)
		}
		snap.AppendList(name, entries...)
	}
	return nil
}

// IsEmpty reports whether the delta changes nothing.
func (d *Delta) IsEmpty() bool {
	return len(d.Unset) == 0 && len(d.Set) == 0 && len(d.Prepend) == 0 && len(d.Append) == 0
}

func expandAll(snap *env.Snapshot, raws []string) ([]string, error) {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		v, err := expandValue(snap, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// expandValue expands parameter references in raw the way a shell expands
// a here-document body. Quotes are kept literally; a backslash escapes '$'.
func expandValue(snap *env.Snapshot, raw string) (string, error) {
	if !strings.Contains(raw, "$") {
		return raw, nil
	}
	word, err := syntax.NewParser().Document(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	cfg := &expand.Config{Env: expand.ListEnviron(snap.Environ()...)}
	v, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", raw, err)
	}
	return v, nil
}

func (d *deltaDefinition) Kind() resource.Kind { return d.kind }

func (d *deltaDefinition) Path() resource.DefinitionPath { return d.path }

func (d *deltaDefinition) Get(_ context.Context, _ Services, snap *env.Snapshot) error {
	if err := d.delta.Apply(snap); err != nil {
		return &InvokeError{Path: d.path, Cause: err}
	}
	return nil
}

// DeltaOf returns the declarative delta behind def, if it has one.
func DeltaOf(def Definition) (Delta, bool) {
	if d, ok := def.(*deltaDefinition); ok {
		return d.delta, true
	}
	return Delta{}, false
}
