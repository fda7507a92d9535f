// SPDX-License-Identifier: MPL-2.0

// Package launch starts the interactive shell that carries a composed
// environment. On Unix the shell replaces the srm process image, so a
// successful Launch never returns.
package launch
