package secret

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${PRESENT} b=${MISSING_B} c=${MISSING_A} d=${MISSING_A}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("ExpandEnvStrict() error = %v, want ErrMissingEnv", err)
	}
	if !strings.HasSuffix(err.Error(), "MISSING_A, MISSING_B") {
		t.Fatalf("expected sorted unique names in error, got: %v", err)
	}
}

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("X", "y")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${X}", "y"},
		{"$X-suffix", "y-suffix"},
		{"$$${X}", "$y"},
		{"cost: $$5", "cost: $5"},
		{"$UNSET_BARE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if err != nil {
				t.Fatalf("ExpandEnvStrict() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
