// Package config provides the module's runtime-tunable configuration: a
// generic string key-value Config (kept from the source layout this module
// started from, since several callers already expect a simple serializable
// bag of settings passed between a supervisor and the primitives it
// constructs), plus a typed Runtime view of three settings — dispatch pool
// size, spin budget, and default acquire timeout. cmd/asyncdemo's config
// command loads and prints them; the primitives do not read them.
//
// Serialization uses YAML via github.com/ghodss/yaml rather than a bespoke
// wire format, since that is the serialization library this module's
// surrounding corpus reaches for wherever config needs to round-trip through
// a string (it marshals through encoding/json's struct tags onto a YAML
// document, so the same struct tags double as the JSON-ish shape callers
// already expect).
package config

import (
	"errors"
	"sync"
	"time"

	"github.com/ghodss/yaml"
)

// ErrKeyNotFound is returned by Get for a key that was never Set.
var ErrKeyNotFound = errors.New("asynclock/config: key not found")

// Config is a simple key-value configuration. Keys and values are strings;
// the client is responsible for encoding structured values in the provided
// string. This makes no assumption about where configuration comes from —
// flags, environment, a supervisor process, or a literal in a test — and
// gives all of them one serializable shape.
type Config interface {
	// Set sets the value for the key, overwriting any existing value.
	Set(key, value string)
	// Get returns the value for the key, or ErrKeyNotFound.
	Get(key string) (string, error)
	// Serialize serializes the config to a YAML document.
	Serialize() (string, error)
	// MergeFrom deserializes a YAML document produced by Serialize and
	// merges it in, overwriting keys that already exist.
	MergeFrom(string) error
}

type cfg struct {
	mu sync.RWMutex
	m  map[string]string
}

// New creates a new empty Config.
func New() Config {
	return &cfg{m: make(map[string]string)}
}

func (c *cfg) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *cfg) Get(key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (c *cfg) Serialize() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, err := yaml.Marshal(c.m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cfg) MergeFrom(serialized string) error {
	var newM map[string]string
	if err := yaml.Unmarshal([]byte(serialized), &newM); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range newM {
		c.m[k] = v
	}
	return nil
}

// Runtime is the typed view of three tunables. Only cmd/asyncdemo's config
// command reads it, to print it. Zero values are not meaningful; use
// Defaults or Load.
type Runtime struct {
	// DispatchPoolSize is a worker count for a dispatch.Pool. Its default
	// equals dispatch.defaultPoolSize; dispatch does not read this field.
	DispatchPoolSize int `json:"dispatchPoolSize"`
	// SpinBudget is a busy-wait attempt count for contended spinlocks. Its
	// default equals the limit waiter.SpinDelay has built in; SpinDelay
	// does not read this field.
	SpinBudget uint `json:"spinBudget"`
	// DefaultTimeout is a default acquire timeout. No demo command applies
	// it.
	DefaultTimeout time.Duration `json:"defaultTimeout"`
}

// Defaults returns the Runtime values Load starts from when nothing else is
// configured.
func Defaults() Runtime {
	return Runtime{
		DispatchPoolSize: 32,
		SpinBudget:       7,
		DefaultTimeout:   30 * time.Second,
	}
}

// Load parses a YAML document (as produced by Config.Serialize, or hand
// authored) into a Runtime, starting from Defaults for any field the
// document omits.
func Load(yamlDoc string) (Runtime, error) {
	r := Defaults()
	if yamlDoc == "" {
		return r, nil
	}
	if err := yaml.Unmarshal([]byte(yamlDoc), &r); err != nil {
		return Runtime{}, err
	}
	return r, nil
}
