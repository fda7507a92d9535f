// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package launch

import (
	"errors"
	"os"
	"os/exec"
)

// execShell runs the shell as a child and exits with its status, since the
// process image cannot be replaced on this platform.
func execShell(argv0 string, argv, envv []string) error {
	cmd := &exec.Cmd{
		Path:   argv0,
		Args:   argv,
		Env:    envv,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		os.Exit(0)
	case errors.As(err, &exitErr):
		os.Exit(exitErr.ExitCode())
	}
	return err
}
