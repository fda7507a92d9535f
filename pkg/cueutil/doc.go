// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates documents against embedded CUE schemas.
//
// Both declarative resource definitions (srm_def.cue) and the JSON
// configuration file go through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile (or, for JSON, strictly extract) the user data and unify it with the schema
//  3. Validate and decode to a Go value
//
// # Usage
//
//	//go:embed definition_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[Delta](schema, data, "#Definition",
//	    cueutil.WithFilename(path))
//	if err != nil {
//	    return nil, err // error carries the file and field path
//	}
//	return result.Value, nil
package cueutil
