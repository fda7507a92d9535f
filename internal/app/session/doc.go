// SPDX-License-Identifier: MPL-2.0

// Package session holds the state of one srm invocation: the loaded
// configuration, the resolver and definition cache built from it, the logger,
// and the parent environment. Commands operate through a Session instead of
// package-level globals.
package session
