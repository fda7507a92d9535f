// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/resource"
)

func loadGo(t *testing.T, content string) (Definition, error) {
	t.Helper()
	path := writeDefinition(t, t.TempDir(), "res", resource.KindGo, content)
	return NewGoLoader(io.Discard, io.Discard).Load(t.Context(), path)
}

func TestGoDefinition_Get(t *testing.T) {
	t.Parallel()

	def, err := loadGo(t, `package main

import (
	"srm"
	"strings"
)

var root = "/opt/" + strings.ToLower("GO")

func Get(svc srm.Services, env map[string]string) {
	env["GOROOT"] = root
	delete(env, "GOPATH")
	svc.PrependPath(env, "PATH", root+"/bin")
	env["SRM_NAME"] = svc.Name()
}
`)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	snap := env.FromEnviron([]string{"PATH=/usr/bin", "GOPATH=/home/u/go"})
	if err := def.Get(t.Context(), testServices(nil, "go/1.22"), snap); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	want := map[string]string{
		"GOROOT":   "/opt/go",
		"PATH":     "/opt/go/bin" + string(os.PathListSeparator) + "/usr/bin",
		"SRM_NAME": "go/1.22",
	}
	for k, v := range want {
		if got, _ := snap.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, ok := snap.Get("GOPATH"); ok {
		t.Error("GOPATH should have been deleted")
	}
	if def.Kind() != resource.KindGo {
		t.Errorf("Kind() = %q, want %q", def.Kind(), resource.KindGo)
	}
}

func TestGoLoader_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantIs  error
	}{
		{"missing Get", "package main\n\nfunc Other() {}\n", ErrNoEntryPoint},
		{"wrong signature", "package main\n\nfunc Get(env map[string]string) {}\n", ErrNoEntryPoint},
		{"not a function", "package main\n\nvar Get = 3\n", ErrNoEntryPoint},
		{"compile error", "package main\n\nfunc Get( {\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadGo(t, tt.content)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestGoDefinition_PanicIsReported(t *testing.T) {
	t.Parallel()

	def, err := loadGo(t, `package main

import "srm"

func Get(svc srm.Services, env map[string]string) {
	env["HALF"] = "applied"
	panic("broken definition")
}
`)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	snap := env.New()
	err = def.Get(t.Context(), testServices(nil, "x"), snap)

	var invokeErr *InvokeError
	if !errors.As(err, &invokeErr) {
		t.Fatalf("Get() error = %v, want *InvokeError", err)
	}
	if _, ok := snap.Get("HALF"); ok {
		t.Error("a panicking Get must not change the snapshot")
	}
}
