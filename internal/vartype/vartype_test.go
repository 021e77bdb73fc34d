// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package vartype

import "testing"

func TestNewVariable(t *testing.T) {
	t.Run("new variable is set", func(t *testing.T) {
		v := NewVariable(51.5)
		if !v.IsSet() {
			t.Fatal("expected variable to be set")
		}
		if v.Value() != 51.5 {
			t.Errorf("expected value to be %f, got %f", 51.5, v.Value())
		}
	})
	t.Run("zero value variable is not set", func(t *testing.T) {
		var v VarFloat64
		if v.IsSet() {
			t.Fatal("expected variable to not be set")
		}
		if _, ok := v.Get(); ok {
			t.Error("expected get to report an unset variable")
		}
	})
	t.Run("a set zero is not the same as unset", func(t *testing.T) {
		v := NewVariable(0.0)
		val, ok := v.Get()
		if !ok {
			t.Fatal("expected variable to be set")
		}
		if val != 0 {
			t.Errorf("expected value to be 0, got %f", val)
		}
	})
}

func TestVariable_SetReset(t *testing.T) {
	var v VarInt64
	v.Set(42)
	if !v.IsSet() || v.Value() != 42 {
		t.Fatalf("expected variable to be set to 42, got %d (set: %t)", v.Value(), v.IsSet())
	}
	v.Reset()
	if v.IsSet() {
		t.Error("expected variable to be unset after reset")
	}
	if v.Value() != 0 {
		t.Errorf("expected value to be reset to 0, got %d", v.Value())
	}
}

func TestVariable_String(t *testing.T) {
	tests := []struct {
		name string
		v    VarFloat64
		verb string
		want string
		str  string
	}{
		{"unset", VarFloat64{}, "%.2f", Unknown, Unknown},
		{"set", NewVariable(1.5), "%.2f", "1.50", "1.5"},
		{"set zero", NewVariable(0.0), "%.1f", "0.0", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.Sprintf(tc.verb); got != tc.want {
				t.Errorf("expected formatted value to be %q, got %q", tc.want, got)
			}
			if got := tc.v.String(); got != tc.str {
				t.Errorf("expected string value to be %q, got %q", tc.str, got)
			}
		})
	}
}
