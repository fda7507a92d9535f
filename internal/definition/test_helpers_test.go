// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/smukherj1/srm/internal/resource"
	"github.com/smukherj1/srm/internal/testutil"
)

// writeDefinition writes a definition file for name under root and returns its path.
func writeDefinition(t *testing.T, root, name string, kind resource.Kind, content string) resource.DefinitionPath {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name), resource.DefinitionBaseName+"."+string(kind))
	testutil.MustWriteFile(t, path, content)
	return resource.DefinitionPath(path)
}

// testServices returns Services logging into buf at debug level.
func testServices(buf *bytes.Buffer, name resource.Name) Services {
	var w io.Writer = io.Discard
	if buf != nil {
		w = buf
	}
	logger := log.NewWithOptions(w, log.Options{Level: log.DebugLevel})
	return NewServices(logger, "/defs", name)
}
