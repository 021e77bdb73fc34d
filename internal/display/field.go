// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package display keeps the reactive status fields that are rendered into the status bar output.
package display

import (
	"sync"

	"github.com/wneessen/gypsy-status/internal/vartype"
)

// RenderFunc turns the current, possibly absent, value of a Field into its display text.
type RenderFunc[T any] func(value vartype.Variable[T]) string

// Field is a named display value that re-renders its text on every update. It is safe for
// concurrent use.
type Field[T any] struct {
	name   string
	render RenderFunc[T]

	mu    sync.RWMutex
	value vartype.Variable[T]
	text  string
}

// NewField returns a Field with an absent value, rendered once up front.
func NewField[T any](name string, render RenderFunc[T]) *Field[T] {
	f := &Field[T]{name: name, render: render}
	f.text = render(f.value)
	return f
}

func (f *Field[T]) Name() string {
	return f.name
}

// Set stores value and reports whether the rendered text changed.
func (f *Field[T]) Set(value T) bool {
	return f.Apply(vartype.NewVariable(value))
}

// Reset marks the value as absent and reports whether the rendered text changed.
func (f *Field[T]) Reset() bool {
	return f.Apply(vartype.Variable[T]{})
}

// Apply stores an optional value as is and reports whether the rendered text changed.
func (f *Field[T]) Apply(value vartype.Variable[T]) bool {
	text := f.render(value)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	changed := text != f.text
	f.text = text
	return changed
}

// Get returns the current value and whether it is set.
func (f *Field[T]) Get() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value.Get()
}

// Text returns the rendered text of the current value.
func (f *Field[T]) Text() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.text
}
