package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name    string
	values  map[string]string
	resolve func(ref string) (string, error)
	closed  bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:stub:alpha", "stub", "alpha", true},
		{"secretref:file:/run/secrets/a:b", "file", "/run/secrets/a:b", true},
		{"secretref:stub:", "", "", false},
		{"secretref::x", "", "", false},
		{"not-a-secretref", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, ref, ok := ParseSecretRef(tt.in)
			if p != tt.provider || ref != tt.ref || ok != tt.ok {
				t.Errorf("ParseSecretRef(%q) = (%q, %q, %v)", tt.in, p, ref, ok)
			}
		})
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("STUB_REF", "alpha")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one", "beta": "two"}})

	tests := []struct {
		in   string
		want string
	}{
		{"literal", "literal"},
		{"secretref:stub:alpha", "one"},
		{"secretref:stub:${STUB_REF}", "one"},
		{"Bearer secretref:stub:beta", "Bearer two"},
		{"redis://:secretref:stub:alpha@cache:6379", "redis://:one@cache:6379"},
		{"secretref:stub:alpha secretref:stub:beta", "one two"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.ResolveValue(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("ResolveValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	explode := errors.New("explode")
	r := NewResolver(true, &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		switch ref {
		case "boom":
			return "", explode
		case "empty":
			return "", nil
		}
		return "ok", nil
	}})

	tests := []struct {
		in   string
		want error
	}{
		{"secretref:stub:boom", explode},
		{"secretref:stub:empty", ErrEmptySecret},
		{"secretref:nope:x", ErrUnknownProvider},
		{"prefix secretref:nope:x", ErrUnknownProvider},
		{"${DEFINITELY_UNSET_FRAGCACHE_VAR}", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if _, err := r.ResolveValue(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ResolveValue(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestResolver_NonStrictAllowsEmpty(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "stub"})
	got, err := r.ResolveValue(context.Background(), "secretref:stub:anything")
	if err != nil || got != "" {
		t.Errorf("ResolveValue() = (%q, %v), want empty value", got, err)
	}
}

func TestResolver_ResolveFields(t *testing.T) {
	t.Setenv("FRAGCACHE_TEST_PASSWORD", "hunter2")
	r := NewDefaultResolver()

	password := "secretref:env:FRAGCACHE_TEST_PASSWORD"
	empty := ""
	if err := r.ResolveFields(context.Background(), map[string]*string{
		"password": &password,
		"empty":    &empty,
		"nil":      nil,
	}); err != nil {
		t.Fatalf("ResolveFields() error = %v", err)
	}
	if password != "hunter2" {
		t.Errorf("password = %q, want hunter2", password)
	}

	bad := "secretref:env:FRAGCACHE_TEST_UNSET"
	err := r.ResolveFields(context.Background(), map[string]*string{"jwt": &bad})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveFields() error = %v, want ErrNotFound", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt"), []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := FileProvider{Dir: dir}
	got, err := p.Resolve(context.Background(), "jwt")
	if err != nil || got != "s3cret" {
		t.Errorf("Resolve(jwt) = (%q, %v), want s3cret", got, err)
	}

	got, err = p.Resolve(context.Background(), filepath.Join(dir, "jwt"))
	if err != nil || got != "s3cret" {
		t.Errorf("Resolve(abs) = (%q, %v), want s3cret", got, err)
	}

	if _, err := p.Resolve(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(missing) error = %v, want ErrNotFound", err)
	}
}

func TestResolver_Close(t *testing.T) {
	stub := &stubProvider{name: "stub"}
	r := NewResolver(true, stub, nil)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !stub.closed {
		t.Error("provider not closed")
	}
}
