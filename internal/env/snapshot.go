// SPDX-License-Identifier: MPL-2.0

package env

import (
	"maps"
	"os"
	"slices"
	"strings"
)

// Snapshot is an ordered mapping from variable name to value.
// Insertion order is preserved; overwriting a variable keeps its position.
type Snapshot struct {
	keys []string
	vars map[string]string
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{vars: make(map[string]string)}
}

// FromEnviron builds a snapshot from "KEY=VALUE" entries. Entries without a
// separator are ignored. When a key repeats, the last value wins and the
// first position is kept.
func FromEnviron(environ []string) *Snapshot {
	s := &Snapshot{
		keys: make([]string, 0, len(environ)),
		vars: make(map[string]string, len(environ)),
	}
	for _, entry := range environ {
		idx := findSeparator(entry)
		if idx == -1 {
			continue
		}
		s.Set(entry[:idx], entry[idx+1:])
	}
	return s
}

// FromProcess copies the current process environment.
func FromProcess() *Snapshot {
	return FromEnviron(os.Environ())
}

// Len returns the number of variables.
func (s *Snapshot) Len() int { return len(s.keys) }

// Get returns the value of a variable and whether it is set.
func (s *Snapshot) Get(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Set assigns a variable, appending it if new.
func (s *Snapshot) Set(name, value string) {
	if _, ok := s.vars[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.vars[name] = value
}

// Unset removes a variable. Unsetting a missing variable is a no-op.
func (s *Snapshot) Unset(name string) {
	if _, ok := s.vars[name]; !ok {
		return
	}
	delete(s.vars, name)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == name })
}

// Keys returns the variable names in order.
func (s *Snapshot) Keys() []string {
	return slices.Clone(s.keys)
}

// Clone returns an independent copy.
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		keys: slices.Clone(s.keys),
		vars: maps.Clone(s.vars),
	}
}

// Map returns an unordered copy of the variables.
func (s *Snapshot) Map() map[string]string {
	return maps.Clone(s.vars)
}

// Replace makes the snapshot hold exactly the variables in m. Surviving keys
// keep their relative order, keys absent from m are dropped and new keys are
// appended in lexical order.
func (s *Snapshot) Replace(m map[string]string) {
	keys := make([]string, 0, len(m))
	for _, k := range s.keys {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	var added []string
	for k := range m {
		if _, ok := s.vars[k]; !ok {
			added = append(added, k)
		}
	}
	slices.Sort(added)
	s.keys = append(keys, added...)
	s.vars = maps.Clone(m)
	if s.vars == nil {
		s.vars = make(map[string]string)
	}
}

// Environ renders the snapshot as "KEY=VALUE" entries in order.
func (s *Snapshot) Environ() []string {
	result := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		result = append(result, k+"="+s.vars[k])
	}
	return result
}

// Diff reports the variables that differ between base and s: names set or
// changed in s, and names present in base but missing from s.
func (s *Snapshot) Diff(base *Snapshot) (changed, removed []string) {
	for _, k := range s.keys {
		if old, ok := base.vars[k]; !ok || old != s.vars[k] {
			changed = append(changed, k)
		}
	}
	for _, k := range base.keys {
		if _, ok := s.vars[k]; !ok {
			removed = append(removed, k)
		}
	}
	return changed, removed
}

// PrependList puts entries in front of a list-valued variable such as PATH,
// joined with the OS list separator. Empty existing values are not kept.
func (s *Snapshot) PrependList(name string, entries ...string) {
	s.joinList(name, entries, true)
}

// AppendList puts entries after the existing value of a list-valued variable.
func (s *Snapshot) AppendList(name string, entries ...string) {
	s.joinList(name, entries, false)
}

func (s *Snapshot) joinList(name string, entries []string, front bool) {
	if len(entries) == 0 {
		return
	}
	sep := string(os.PathListSeparator)
	joined := strings.Join(entries, sep)
	cur, ok := s.vars[name]
	switch {
	case !ok || cur == "":
		s.Set(name, joined)
	case front:
		s.Set(name, joined+sep+cur)
	default:
		s.Set(name, cur+sep+joined)
	}
}

// findSeparator returns the index of the '=' separator. A leading '=' belongs
// to the name (Windows per-drive variables such as "=C:").
func findSeparator(e string) int {
	if len(e) == 0 {
		return -1
	}
	idx := strings.IndexByte(e[1:], '=')
	if idx == -1 {
		return -1
	}
	return idx + 1
}
