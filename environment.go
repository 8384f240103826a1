package basic

import (
	"fmt"
	"slices"
	"strings"
)

// Scope is a handle to a frame in an Environment.
type Scope int

const NoScope Scope = -1

type frame struct {
	vars   map[string]Number
	names  []string
	parent Scope
}

// Environment owns every scope frame of a run. Frames refer to their parent by
// handle, and lookups always start from the current frame.
type Environment struct {
	frames  []frame
	current Scope
}

func NewEnvironment() *Environment {
	e := &Environment{current: NoScope}
	e.current = e.newFrame(NoScope)
	return e
}

// NewGlobalEnvironment returns an environment seeded with nil, true and
// false.
func NewGlobalEnvironment() *Environment {
	env := NewEnvironment()
	env.Set("nil", Int(0))
	env.Set("true", Int(1))
	env.Set("false", Int(0))
	return env
}

func (e *Environment) newFrame(parent Scope) Scope {
	e.frames = append(e.frames, frame{vars: make(map[string]Number), parent: parent})
	return Scope(len(e.frames) - 1)
}

func (e *Environment) Current() Scope { return e.current }

// Push opens a child frame of the current frame and makes it current.
func (e *Environment) Push() Scope {
	e.current = e.newFrame(e.current)
	return e.current
}

// Pop discards the current frame and returns to its parent. The global frame
// cannot be popped.
func (e *Environment) Pop() error {
	parent := e.frames[e.current].parent
	if parent == NoScope {
		return fmt.Errorf("cannot pop the global scope")
	}
	e.frames = e.frames[:e.current]
	e.current = parent
	return nil
}

// Get looks name up in the current frame, then in each parent in turn.
func (e *Environment) Get(name string) (Number, bool) {
	return e.Lookup(e.current, name)
}

func (e *Environment) Lookup(scope Scope, name string) (Number, bool) {
	for s := scope; s != NoScope; s = e.frames[s].parent {
		if v, ok := e.frames[s].vars[name]; ok {
			return v, true
		}
	}
	return Number{}, false
}

// Set always writes to the current frame, shadowing any parent binding.
func (e *Environment) Set(name string, value Number) {
	f := &e.frames[e.current]
	if _, ok := f.vars[name]; !ok {
		f.names = append(f.names, name)
	}
	f.vars[name] = value
}

// Remove deletes name from the current frame only. A name bound only in a
// parent frame is reported as missing.
func (e *Environment) Remove(name string) error {
	f := &e.frames[e.current]
	if _, ok := f.vars[name]; !ok {
		return fmt.Errorf("variable %q is not defined in the current scope", name)
	}
	delete(f.vars, name)
	f.names = slices.DeleteFunc(f.names, func(n string) bool { return n == name })
	return nil
}

// Names lists the current frame's bindings in definition order.
func (e *Environment) Names() []string {
	return slices.Clone(e.frames[e.current].names)
}

func (e *Environment) Depth() int {
	depth := 0
	for s := e.current; s != NoScope; s = e.frames[s].parent {
		depth++
	}
	return depth
}

func (e *Environment) String() string {
	f := e.frames[e.current]
	parts := make([]string, len(f.names))
	for i, name := range f.names {
		parts[i] = fmt.Sprintf("%s: %s", name, f.vars[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
