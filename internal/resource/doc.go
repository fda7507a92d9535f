// SPDX-License-Identifier: MPL-2.0

// Package resource maps resource names to definition files under the
// resource definitions root. A missing definition is not an error; it tells
// the caller the resource does not exist.
package resource
