// SPDX-License-Identifier: MPL-2.0

// Package compose builds the environment for `srm get`: it resolves each
// requested resource, loads its definition through the cache and applies it
// to a private snapshot of the parent environment, in request order.
//
// A name with no definition is a warning and is skipped. Any failure to
// inspect, load or apply a definition that does exist stops composition.
package compose
