package basic

import (
	"reflect"
	"testing"
)

func TestGlobalEnvironmentConstants(t *testing.T) {
	env := NewGlobalEnvironment()
	expected := map[string]int64{"nil": 0, "true": 1, "false": 0}
	for name, want := range expected {
		v, ok := env.Get(name)
		if !ok || v.Int64() != want {
			t.Fatalf("%s: expected %d, got %s (found=%v)", name, want, v, ok)
		}
	}
	if names := env.Names(); !reflect.DeepEqual(names, []string{"nil", "true", "false"}) {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestEnvironmentShadowingAndLookup(t *testing.T) {
	env := NewGlobalEnvironment()
	env.Set("x", Int(1))
	global := env.Current()

	child := env.Push()
	if env.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", env.Depth())
	}
	if v, ok := env.Get("x"); !ok || v.Int64() != 1 {
		t.Fatalf("child should see parent binding, got %s", v)
	}
	env.Set("x", Int(2))
	if v, _ := env.Lookup(child, "x"); v.Int64() != 2 {
		t.Fatalf("expected shadowed value 2, got %s", v)
	}
	if v, _ := env.Lookup(global, "x"); v.Int64() != 1 {
		t.Fatalf("set must not mutate the parent, got %s", v)
	}

	if err := env.Pop(); err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if v, _ := env.Get("x"); v.Int64() != 1 {
		t.Fatalf("expected parent value after pop, got %s", v)
	}
	if err := env.Pop(); err == nil {
		t.Fatalf("expected error popping the global scope")
	}
}

func TestEnvironmentRemoveIsLocal(t *testing.T) {
	env := NewGlobalEnvironment()
	env.Set("x", Int(1))
	env.Push()
	if err := env.Remove("x"); err == nil {
		t.Fatalf("removing a parent-only binding must fail")
	}
	env.Set("x", Int(2))
	if err := env.Remove("x"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if v, ok := env.Get("x"); !ok || v.Int64() != 1 {
		t.Fatalf("parent binding should be visible again, got %s", v)
	}
	if err := env.Remove("missing"); err == nil {
		t.Fatalf("removing an unknown name must fail")
	}
}

func TestEnvironmentString(t *testing.T) {
	env := NewEnvironment()
	env.Set("b", Float(2.5))
	env.Set("a", Int(1))
	env.Set("b", Int(3))
	if got := env.String(); got != "{b: 3, a: 1}" {
		t.Fatalf("unexpected environment rendering %s", got)
	}
}
