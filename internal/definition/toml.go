// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/smukherj1/srm/internal/resource"
)

// TOMLLoader loads declarative srm_def.toml files. Unknown keys are rejected.
type TOMLLoader struct{}

// NewTOMLLoader creates a TOML definition loader.
func NewTOMLLoader() *TOMLLoader { return &TOMLLoader{} }

// Load reads and decodes the file.
func (l *TOMLLoader) Load(_ context.Context, path resource.DefinitionPath) (Definition, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var delta Delta
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&delta); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	return &deltaDefinition{kind: resource.KindTOML, path: path, delta: delta}, nil
}
