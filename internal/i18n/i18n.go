// Package i18n holds user-facing strings. Keys are dotted paths into a YAML
// catalog; the English catalog is embedded and can be overridden from a file.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed en.yaml
var english []byte

// Catalog maps dotted keys to format strings.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]string
}

// Parse builds a catalog from YAML. Nested maps are flattened into dotted keys.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{entries: make(map[string]string)}
	flatten("", raw, c.entries)
	return c, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded English catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(english)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load returns the English catalog with entries from path layered on top.
// An empty path yields a copy of the embedded catalog.
func Load(path string) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]string)}
	c.Merge(Default())
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locale file: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Merge(override)
	return c, nil
}

// Merge copies every entry of other into c.
func (c *Catalog) Merge(other *Catalog) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range other.entries {
		c.entries[k] = v
	}
}

// T formats the string stored under key. Unknown keys are returned as is.
func (c *Catalog) T(key string, args ...any) string {
	c.mu.RLock()
	format, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}
