// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides an optional value that keeps "not reported" apart from the zero value.
package vartype

import (
	"fmt"
)

type (
	// VarFloat64 is a type alias for Variable[float64], a float64 reading that may be absent.
	VarFloat64 = Variable[float64]

	// VarInt64 is a type alias for Variable[int64], an integer reading that may be absent.
	VarInt64 = Variable[int64]
)

// Unknown is the string representation of a Variable that has not been set.
const Unknown = "unknown"

// Variable represents a generic type wrapper that holds a value and tracks its initialization state.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable creates and returns a new Variable instance initialized with the provided value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Reset clears the value of the Variable and marks it as uninitialized.
func (v *Variable[T]) Reset() {
	var newVal T
	v.value = newVal
	v.isset = false
}

// Set assigns the provided value to the Variable and marks it as initialized.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// Value retrieves the current value stored in the Variable. For an unset Variable this is the
// zero value of T, so callers that care about absence should use Get or IsSet.
func (v Variable[T]) Value() T {
	return v.value
}

// Get returns the stored value and whether it was set.
func (v Variable[T]) Get() (T, bool) {
	return v.value, v.isset
}

// IsSet returns true if the Variable has been initialized with a value, otherwise false.
func (v Variable[T]) IsSet() bool {
	return v.isset
}

// Sprintf renders the value with the given fmt verb, or Unknown if it is not set.
func (v Variable[T]) Sprintf(verb string) string {
	if !v.isset {
		return Unknown
	}
	return fmt.Sprintf(verb, v.value)
}

// String returns a string representation of the Variable. If uninitialized, it returns Unknown.
func (v Variable[T]) String() string {
	if !v.isset {
		return Unknown
	}
	return fmt.Sprint(v.value)
}
