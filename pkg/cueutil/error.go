// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/errors"
)

// FormatError prefixes every CUE error with the file and the JSON-style path
// of the offending field:
//
//	gcc/7.2/srm_def.cue: prepend.PATH[0]: conflicting values "x" and int
//	.srm.json: resource_defs: conflicting values string and 3
//
// Errors that did not come from CUE are wrapped with the file name only.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	var ce errors.Error
	if !stderrors.As(err, &ce) {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	cueErrors := errors.Errors(err)

	lines := make([]string, 0, len(cueErrors))
	for _, e := range cueErrors {
		field := formatPath(errors.Path(e))
		msg := e.Error()
		if field == "" {
			lines = append(lines, msg)
			continue
		}
		// CUE sometimes repeats the path at the start of the message.
		if rest, ok := strings.CutPrefix(msg, field); ok {
			msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		}
		lines = append(lines, field+": "+msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// formatPath turns ["prepend", "PATH", "0"] into "prepend.PATH[0]".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if _, err := strconv.ParseUint(part, 10, 64); err == nil && i > 0 {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// CheckFileSize returns an error when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
