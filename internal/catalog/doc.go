// SPDX-License-Identifier: MPL-2.0

// Package catalog records registered resources in a SQLite database at the
// configured db_path. It holds metadata about definitions only; `srm get`
// never reads it.
package catalog
