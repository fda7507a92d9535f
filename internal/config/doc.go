// SPDX-License-Identifier: MPL-2.0

// Package config loads the srm configuration file with Viper.
//
// The file is JSON (default ~/.srm.json, overridable with SRM_CONFIG or an
// explicit path) and is validated against an embedded CUE schema before it is
// merged over the defaults. Every key can also be overridden from the
// environment with the SRM_ prefix, e.g. SRM_RESOURCE_DEFS.
package config
