package cache

import (
	"errors"
	"math"
	"regexp"
	"testing"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{32}$`)

func mustKey(t *testing.T, c Conditions) string {
	t.Helper()
	key, err := NewDefaultKeyer().Key(c)
	if err != nil {
		t.Fatalf("Key(%v) error = %v", c, err)
	}
	return key
}

func TestKeyer_OrderIndependent(t *testing.T) {
	a := Conditions{"b": 2, "a": 1, "c": 3}
	b := Conditions{"a": 1, "c": 3, "b": 2}
	c := Conditions{"c": 3, "b": 2, "a": 1}

	ka, kb, kc := mustKey(t, a), mustKey(t, b), mustKey(t, c)
	if ka != kb || kb != kc {
		t.Fatalf("keys differ for equal conditions: %s %s %s", ka, kb, kc)
	}
}

func TestKeyer_NestedMapsOrderIndependent(t *testing.T) {
	a := Conditions{"user": map[string]any{"role": "admin", "id": 7}, "page": 2}
	b := Conditions{"page": 2, "user": map[string]any{"id": 7, "role": "admin"}}

	if mustKey(t, a) != mustKey(t, b) {
		t.Fatal("nested maps with equal content must derive the same key")
	}
}

func TestKeyer_SequenceOrderMatters(t *testing.T) {
	a := Conditions{"items": []any{1, 2, 3}}
	b := Conditions{"items": []any{3, 2, 1}}

	if mustKey(t, a) == mustKey(t, b) {
		t.Fatal("different sequence order must derive different keys")
	}
}

func TestKeyer_DistinguishesValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Conditions
	}{
		{"different value", Conditions{"page": 1}, Conditions{"page": 2}},
		{"different name", Conditions{"page": 1}, Conditions{"offset": 1}},
		{"number vs string", Conditions{"page": 1}, Conditions{"page": "1"}},
		{"extra condition", Conditions{"page": 1}, Conditions{"page": 1, "locale": "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if mustKey(t, tt.a) == mustKey(t, tt.b) {
				t.Errorf("keys collide for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestKeyer_NilEqualsEmpty(t *testing.T) {
	if mustKey(t, nil) != mustKey(t, Conditions{}) {
		t.Fatal("nil and empty conditions must derive the same key")
	}
}

func TestKeyer_Format(t *testing.T) {
	for _, c := range []Conditions{nil, {"page": 2, "locale": "en"}, {"deep": []any{map[string]any{"x": 1.5}}}} {
		key := mustKey(t, c)
		if len(key) != KeyLength || !hexKey.MatchString(key) {
			t.Errorf("Key(%v) = %q, want %d lowercase hex chars", c, key, KeyLength)
		}
	}
}

func TestKeyer_Stable(t *testing.T) {
	c := Conditions{"page": 2, "locale": "en"}
	first := mustKey(t, c)
	for i := 0; i < 50; i++ {
		if got := mustKey(t, c); got != first {
			t.Fatalf("iteration %d: key %s != %s", i, got, first)
		}
	}
}

func TestKeyer_InvalidConditions(t *testing.T) {
	tests := []struct {
		name string
		c    Conditions
	}{
		{"func", Conditions{"cb": func() {}}},
		{"channel", Conditions{"ch": make(chan int)}},
		{"NaN", Conditions{"n": math.NaN()}},
		{"nested func", Conditions{"outer": map[string]any{"inner": func() {}}}},
		{"func in slice", Conditions{"list": []any{1, func() {}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefaultKeyer().Key(tt.c)
			if !errors.Is(err, ErrInvalidConditions) {
				t.Fatalf("Key() error = %v, want ErrInvalidConditions", err)
			}
		})
	}
}

func TestCanonicalize_SortedKeys(t *testing.T) {
	got, err := Canonicalize(Conditions{"page": 2, "locale": "en", "tags": []any{"b", "a"}})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"locale":"en","page":2,"tags":["b","a"]}`
	if string(got) != want {
		t.Fatalf("Canonicalize = %s, want %s", got, want)
	}
}

func TestConditions_CloneAndGet(t *testing.T) {
	c := Conditions{"page": 2}
	clone := c.Clone()
	clone["page"] = 3

	if v, _ := c.Get("page"); v != 2 {
		t.Fatalf("original mutated through clone: %v", v)
	}
	if _, ok := Conditions(nil).Get("page"); ok {
		t.Fatal("nil conditions must report absent")
	}
}
