// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/smukherj1/srm/internal/definition"
	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/resource"
	"github.com/smukherj1/srm/internal/testutil"
)

type fixture struct {
	defs   *testutil.Defs
	cache  *definition.Cache
	logs   *bytes.Buffer
	logger *log.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	return &fixture{
		defs:   testutil.NewDefs(t),
		cache:  definition.NewCache(definition.CacheOptions{}),
		logs:   logs,
		logger: log.NewWithOptions(logs, log.Options{Level: log.DebugLevel}),
	}
}

func (f *fixture) composer(environ []string) *Composer {
	return New(resource.NewResolver(f.defs.Root), f.cache, f.logger, environ)
}

func names(ns ...string) []resource.Name {
	out := make([]resource.Name, len(ns))
	for i, n := range ns {
		out[i] = resource.Name(n)
	}
	return out
}

func TestCompose_LastWriterWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Add("a", "toml", "[set]\nX = \"from-a\"\nONLY_A = \"1\"\n")
	f.defs.Shell("b", "export X=from-b")

	res, err := f.composer([]string{"HOME=/home/tester"}).Compose(t.Context(), names("a", "b"))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	if diff := cmp.Diff(names("a", "b"), res.Applied); diff != "" {
		t.Errorf("Applied mismatch (-want +got):\n%s", diff)
	}
	for key, want := range map[string]string{"HOME": "/home/tester", "X": "from-b", "ONLY_A": "1"} {
		if got, _ := res.Env.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestCompose_LaterResourcesSeeEarlierOnes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Add("gcc/7.2", "toml", "[set]\nGCC_ROOT = \"/opt/gcc/7.2\"\n")
	f.defs.Add("gcc/tools", "toml", "[prepend]\nPATH = [\"${GCC_ROOT}/bin\"]\n")

	res, err := f.composer([]string{"PATH=/usr/bin"}).Compose(t.Context(), names("gcc/7.2", "gcc/tools"))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if got, _ := res.Env.Get("PATH"); got != "/opt/gcc/7.2/bin:/usr/bin" {
		t.Errorf("PATH = %q", got)
	}
}

func TestCompose_Dedup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Shell("a", `export COUNT="${COUNT}a"`)
	f.defs.Shell("b", `export COUNT="${COUNT}b"`)

	res, err := f.composer(nil).Compose(t.Context(), names("a", "b", "a", "b", "a"))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if diff := cmp.Diff(names("a", "b"), res.Applied); diff != "" {
		t.Errorf("Applied mismatch (-want +got):\n%s", diff)
	}
	if got, _ := res.Env.Get("COUNT"); got != "ab" {
		t.Errorf("COUNT = %q, want each resource applied once", got)
	}
	if loads, _ := f.cache.Stats(); loads != 2 {
		t.Errorf("loads = %d, want 2", loads)
	}
}

func TestCompose_MissingIsWarning(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Shell("present", "export P=1")

	res, err := f.composer(nil).Compose(t.Context(), names("absent/1.0", "present"))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if diff := cmp.Diff(names("absent/1.0"), res.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(names("present"), res.Applied); diff != "" {
		t.Errorf("Applied mismatch (-want +got):\n%s", diff)
	}
	logs := f.logs.String()
	if !strings.Contains(logs, "resource not found") || !strings.Contains(logs, "absent/1.0") {
		t.Errorf("expected a warning naming the missing resource, got:\n%s", logs)
	}
}

func TestCompose_NamesThatCannotExistAreMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Add("a", "toml", "[set]\nA = \"1\"\n")
	testutil.MustWriteFile(t, f.defs.Root+"/srm.db", "sqlite")
	long := strings.Repeat("x", 300)

	res, err := f.composer(nil).Compose(t.Context(), names("a", "a/srm_def.toml", "srm.db", long))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if diff := cmp.Diff(names("a"), res.Applied); diff != "" {
		t.Errorf("Applied mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(names("a/srm_def.toml", "srm.db", long), res.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_NothingApplied(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.composer(nil).Compose(t.Context(), names("nope", "also-nope"))
	if !errors.Is(err, ErrNothingApplied) {
		t.Fatalf("Compose() error = %v, want ErrNothingApplied", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.NothingAppliedId {
		t.Errorf("Compose() error = %#v, want actionable error with guidance", err)
	}
}

func TestCompose_ParentEnvironmentUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Add("clean", "toml", "unset = [\"SECRET\"]\n[set]\nNEW = \"1\"\n")

	parent := []string{"SECRET=s3cr3t", "KEEP=1"}
	orig := slices.Clone(parent)
	c := f.composer(parent)

	first, err := c.Compose(t.Context(), names("clean"))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	first.Env.Set("KEEP", "changed")

	second, err := c.Compose(t.Context(), names("clean"))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	if diff := cmp.Diff(orig, parent); diff != "" {
		t.Errorf("parent environment modified (-want +got):\n%s", diff)
	}
	if got, _ := second.Env.Get("KEEP"); got != "1" {
		t.Errorf("second composition saw KEEP = %q, want 1", got)
	}
	if _, ok := second.Env.Get("SECRET"); ok {
		t.Error("SECRET should be unset in the composed environment")
	}
	if loads, hits := f.cache.Stats(); loads != 1 || hits != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", loads, hits)
	}
}

func TestCompose_LoadFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Shell("good", "export GOOD=1")
	f.defs.Add("broken", "sh", "get() {\n")

	_, err := f.composer(nil).Compose(t.Context(), names("good", "broken", "missing"))
	var loadErr *definition.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Compose() error = %v, want *definition.LoadError", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.DefinitionLoadFailedId || ae.Resource != "broken" {
		t.Errorf("Compose() error = %#v, want actionable load error for broken", err)
	}
}

func TestCompose_GetFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Shell("fails", "exit 3")

	_, err := f.composer(nil).Compose(t.Context(), names("fails"))
	var invokeErr *definition.InvokeError
	if !errors.As(err, &invokeErr) {
		t.Fatalf("Compose() error = %v, want *definition.InvokeError", err)
	}
}

type failingResolver struct{ err error }

func (r failingResolver) Resolve(resource.Name) (resource.DefinitionPath, bool, error) {
	return "", false, r.err
}

func (failingResolver) Shadowed(resource.Name, resource.DefinitionPath) []resource.DefinitionPath {
	return nil
}

func (failingResolver) Root() string { return "/defs" }

func TestCompose_ResolveErrorIsFatal(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	c := New(failingResolver{err: cause}, definition.NewCache(definition.CacheOptions{}), log.New(&bytes.Buffer{}), nil)
	if _, err := c.Compose(t.Context(), names("gcc")); !errors.Is(err, cause) {
		t.Errorf("Compose() error = %v, want %v", err, cause)
	}
}

func TestCompose_Canceled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Shell("a", "export A=1")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := f.composer(nil).Compose(ctx, names("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("Compose() error = %v, want context.Canceled", err)
	}
}

func TestCompose_DebugLogsChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.defs.Shell("a", "export CHANGED_BY_A=1")
	f.defs.Add("a", "toml", "[set]\nSHADOWED = \"1\"\n")

	if _, err := f.composer(nil).Compose(t.Context(), names("a")); err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	logs := f.logs.String()
	for _, want := range []string{"applied resource", "CHANGED_BY_A", "definition shadows others", "srm_def.toml"} {
		if !strings.Contains(logs, want) {
			t.Errorf("debug log missing %q:\n%s", want, logs)
		}
	}
}

func TestDedup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []resource.Name
		want []resource.Name
	}{
		{"empty", nil, names()},
		{"no repeats", names("a", "b"), names("a", "b")},
		{"first occurrence wins", names("b", "a", "b", "c", "a"), names("b", "a", "c")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, Dedup(tt.in)); diff != "" {
				t.Errorf("Dedup() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
