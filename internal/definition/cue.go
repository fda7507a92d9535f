// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/smukherj1/srm/internal/resource"
	"github.com/smukherj1/srm/pkg/cueutil"
)

//go:embed definition_schema.cue
var definitionSchema []byte

// CUELoader loads declarative srm_def.cue files validated against #Definition.
type CUELoader struct{}

// NewCUELoader creates a CUE definition loader.
func NewCUELoader() *CUELoader { return &CUELoader{} }

// Load reads and validates the file.
func (l *CUELoader) Load(_ context.Context, path resource.DefinitionPath) (Definition, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	result, err := cueutil.ParseAndDecode[Delta](definitionSchema, data, "#Definition", cueutil.WithFilename(string(path)))
	if err != nil {
		return nil, err
	}

	return &deltaDefinition{kind: resource.KindCUE, path: path, delta: *result.Value}, nil
}
