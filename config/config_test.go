package config

import (
	"testing"
)

func checkPresent(t *testing.T, c Config, k, wantV string) {
	t.Helper()
	if v, err := c.Get(k); err != nil {
		t.Errorf("Expected value %q for key %q, got error %v instead", wantV, k, err)
	} else if v != wantV {
		t.Errorf("Expected value %q for key %q, got %q instead", wantV, k, v)
	}
}

func checkAbsent(t *testing.T, c Config, k string) {
	t.Helper()
	if v, err := c.Get(k); err != ErrKeyNotFound {
		t.Errorf("Expected (\"\", %v) for key %q, got (%q, %v) instead", ErrKeyNotFound, k, v, err)
	}
}

func TestConfig(t *testing.T) {
	c := New()
	c.Set("foo", "bar")
	checkPresent(t, c, "foo", "bar")
	checkAbsent(t, c, "food")
	c.Set("foo", "baz")
	checkPresent(t, c, "foo", "baz")
}

func TestSerialize(t *testing.T) {
	c := New()
	c.Set("k1", "v1")
	c.Set("k2", "v2")
	s, err := c.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	readC := New()
	if err := readC.MergeFrom(s); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	checkPresent(t, readC, "k1", "v1")
	checkPresent(t, readC, "k2", "v2")

	readC.Set("k2", "newv2")
	checkPresent(t, readC, "k2", "newv2")
	readC.Set("k3", "v3")

	c.Set("k1", "newv1")
	c.Set("k4", "v4")
	s, err = c.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if err := readC.MergeFrom(s); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	checkPresent(t, readC, "k1", "newv1")
	checkPresent(t, readC, "k2", "v2")
	checkPresent(t, readC, "k3", "v3")
	checkPresent(t, readC, "k4", "v4")
}

func TestLoadDefaults(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r != Defaults() {
		t.Fatalf("Load(\"\") = %+v, want Defaults() = %+v", r, Defaults())
	}
}

func TestLoadOverridesSubset(t *testing.T) {
	r, err := Load("dispatchPoolSize: 8\n")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.DispatchPoolSize != 8 {
		t.Fatalf("DispatchPoolSize = %d, want 8", r.DispatchPoolSize)
	}
	if r.DefaultTimeout != Defaults().DefaultTimeout {
		t.Fatalf("DefaultTimeout = %v, want default %v", r.DefaultTimeout, Defaults().DefaultTimeout)
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load("not: [valid"); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}
