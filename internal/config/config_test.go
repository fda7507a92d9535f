// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/testutil"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "srm.json")
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	home := "/home/tester"
	tests := []struct {
		name    string
		content string
		want    Config
	}{
		{
			name:    "both keys",
			content: `{"resource_defs": "/opt/defs", "db_path": "/var/srm/catalog.db"}`,
			want:    Config{ResourceDefs: "/opt/defs", DBPath: "/var/srm/catalog.db"},
		},
		{
			name:    "db_path derived from resource_defs",
			content: `{"resource_defs": "/opt/defs"}`,
			want:    Config{ResourceDefs: "/opt/defs", DBPath: "/opt/defs/srm.db"},
		},
		{
			name:    "empty object uses defaults",
			content: `{}`,
			want:    Config{ResourceDefs: "/home/tester/.srm", DBPath: "/home/tester/.srm/srm.db"},
		},
		{
			name:    "unknown keys are ignored",
			content: `{"resource_defs": "/opt/defs", "dbpath": "/x", "extra": {"nested": [1, 2]}}`,
			want:    Config{ResourceDefs: "/opt/defs", DBPath: "/opt/defs/srm.db"},
		},
		{
			name:    "tilde is expanded",
			content: `{"resource_defs": "~/defs", "db_path": "~"}`,
			want:    Config{ResourceDefs: "/home/tester/defs", DBPath: "/home/tester"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)
			cfg, err := NewProvider().Load(t.Context(), LoadOptions{ConfigFilePath: path, HomeDir: home, Getenv: noEnv})
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if *cfg != tt.want {
				t.Errorf("Load() = %+v, want %+v", *cfg, tt.want)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantIssue issue.Id
		wantErr   error
		contains  string
	}{
		{
			name:      "malformed JSON",
			content:   `{"resource_defs": `,
			wantIssue: issue.ConfigLoadFailedId,
		},
		{
			name:      "comments are not JSON",
			content:   "// defs\n{\"resource_defs\": \"/opt/defs\"}",
			wantIssue: issue.ConfigLoadFailedId,
		},
		{
			name:      "wrong type",
			content:   `{"resource_defs": 7}`,
			wantIssue: issue.ConfigLoadFailedId,
			contains:  "resource_defs",
		},
		{
			name:      "explicitly empty resource_defs",
			content:   `{"resource_defs": ""}`,
			wantIssue: issue.ResourceDefsMissingId,
			wantErr:   ErrEmptyResourceDefs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)
			_, err := NewProvider().Load(t.Context(), LoadOptions{ConfigFilePath: path, HomeDir: "/home/tester", Getenv: noEnv})
			if err == nil {
				t.Fatal("Load() expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %T, want *issue.ActionableError", err)
			}
			if ae.Issue != tt.wantIssue {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.wantIssue)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Load() error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	_, err := NewProvider().Load(t.Context(), LoadOptions{HomeDir: home, Getenv: noEnv})
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("Load() error = %v, want ErrConfigNotFound", err)
	}
	if !strings.Contains(err.Error(), DefaultPath(home)) {
		t.Errorf("error %q should name the default path", err)
	}
}

func TestLoad_PathSources(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	testutil.MustWriteFile(t, DefaultPath(home), `{"resource_defs": "/from/default"}`)
	envPath := writeConfig(t, `{"resource_defs": "/from/env"}`)
	flagPath := writeConfig(t, `{"resource_defs": "/from/flag"}`)
	getenv := func(key string) string {
		if key == PathEnvVar {
			return envPath
		}
		return ""
	}

	tests := []struct {
		name string
		opts LoadOptions
		want string
	}{
		{"default file", LoadOptions{HomeDir: home, Getenv: noEnv}, "/from/default"},
		{"SRM_CONFIG beats default", LoadOptions{HomeDir: home, Getenv: getenv}, "/from/env"},
		{"explicit path beats SRM_CONFIG", LoadOptions{HomeDir: home, Getenv: getenv, ConfigFilePath: flagPath}, "/from/flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := NewProvider().Load(t.Context(), tt.opts)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.ResourceDefs != tt.want {
				t.Errorf("ResourceDefs = %q, want %q", cfg.ResourceDefs, tt.want)
			}
		})
	}
}

// Not parallel: sets process environment.
func TestLoad_EnvOverride(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"resource_defs": "/from/file", "db_path": "/db"}`)
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{
			name: "no overrides",
			want: Config{ResourceDefs: "/from/file", DBPath: "/db"},
		},
		{
			name: "resource_defs",
			env:  map[string]string{"SRM_RESOURCE_DEFS": "/from/env"},
			want: Config{ResourceDefs: "/from/env", DBPath: "/db"},
		},
		{
			name: "db_path with tilde",
			env:  map[string]string{"SRM_DB_PATH": "~/catalog.db"},
			want: Config{ResourceDefs: "/from/file", DBPath: "/home/tester/catalog.db"},
		},
		{
			name: "empty value is ignored",
			env:  map[string]string{"SRM_RESOURCE_DEFS": ""},
			want: Config{ResourceDefs: "/from/file", DBPath: "/db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			getenv := func(key string) string { return tt.env[key] }
			cfg, err := NewProvider().Load(t.Context(), LoadOptions{ConfigFilePath: path, HomeDir: "/home/tester", Getenv: getenv})
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if *cfg != tt.want {
				t.Errorf("Load() = %+v, want %+v", *cfg, tt.want)
			}
		})
	}
}

func TestLoad_ProcessEnvOverride(t *testing.T) {
	t.Setenv("SRM_RESOURCE_DEFS", "/from/process")

	path := writeConfig(t, `{"resource_defs": "/from/file"}`)
	cfg, err := NewProvider().Load(t.Context(), LoadOptions{ConfigFilePath: path, HomeDir: "/home/tester"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ResourceDefs != "/from/process" {
		t.Errorf("ResourceDefs = %q, want the process environment override", cfg.ResourceDefs)
	}
}

func TestEnvKeyNames(t *testing.T) {
	t.Parallel()

	if got := envKey("resource_defs"); got != "SRM_RESOURCE_DEFS" {
		t.Errorf("envKey(resource_defs) = %q", got)
	}
	if got := envKey("db_path"); got != "SRM_DB_PATH" {
		t.Errorf("envKey(db_path) = %q", got)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{HomeDir: "/home/tester", Getenv: noEnv}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestExpandHome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"~", "/h"},
		{"~/defs", "/h/defs"},
		{"~other/defs", "~other/defs"},
		{"/abs/~/x", "/abs/~/x"},
		{"rel", "rel"},
	}
	for _, tt := range tests {
		if got := expandHome(tt.in, "/h"); got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
