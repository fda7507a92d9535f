// SPDX-License-Identifier: MPL-2.0

// Package definition loads resource definitions and caches them for the
// lifetime of the process.
//
// A definition is either executable code or declarative data:
//
//   - srm_def.sh runs in the embedded mvdan/sh interpreter and must define a
//     shell function named get. Variables it exports (or unsets) while get
//     runs become the new environment.
//   - srm_def.go runs in the yaegi Go interpreter and must declare
//     func Get(svc srm.Services, env map[string]string).
//   - srm_def.cue and srm_def.toml describe a Delta: variables to unset, set,
//     prepend to and append to.
//
// Top-level code of executable definitions runs once, when the definition is
// first loaded. Definitions are trusted local code; nothing is sandboxed and
// any load failure is fatal to the caller.
package definition
