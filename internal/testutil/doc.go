// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on setup errors,
// plus a builder for resource definition trees.
package testutil
