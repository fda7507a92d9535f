// SPDX-License-Identifier: MPL-2.0

//go:build unix

package launch

import "golang.org/x/sys/unix"

// execShell replaces the current process image. It only returns on failure.
func execShell(argv0 string, argv, envv []string) error {
	return unix.Exec(argv0, argv, envv)
}
