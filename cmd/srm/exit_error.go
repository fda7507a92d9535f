// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/smukherj1/srm/pkg/types"

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "exit status " + e.Code.String()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
