// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// Defs builds a resource definitions directory for tests.
type Defs struct {
	t    testing.TB
	Root string
}

// NewDefs creates an empty definitions root under t.TempDir().
func NewDefs(t testing.TB) *Defs {
	t.Helper()
	return &Defs{t: t, Root: t.TempDir()}
}

// Add writes {Root}/{name}/srm_def.{kind} and returns its path.
func (d *Defs) Add(name, kind, content string) string {
	d.t.Helper()
	path := filepath.Join(d.Root, filepath.FromSlash(name), "srm_def."+kind)
	MustWriteFile(d.t, path, content)
	return path
}

// Shell adds a shell definition whose get function runs body.
func (d *Defs) Shell(name, body string) string {
	d.t.Helper()
	return d.Add(name, "sh", "get() {\n"+body+"\n}\n")
}
