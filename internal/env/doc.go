// SPDX-License-Identifier: MPL-2.0

// Package env provides the ordered environment snapshot that resource
// definitions mutate during composition. A Snapshot is always a private copy;
// it never aliases the parent process environment.
package env
