// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the srm command line interface.
package cmd
