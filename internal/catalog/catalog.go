package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Catalog maps batch-local keys (original filenames at scan time) to
// metadata records. Key order is significant: carried-over entries keep the
// stored order and new entries append, so the persisted JSON diffs cleanly
// between runs. A plain map would lose that, hence the explicit key slice.
type Catalog struct {
	keys    []string
	entries map[string]Record
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]Record)}
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.keys)
}

// Keys returns the batch-local keys in insertion order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Get returns the record stored under key.
func (c *Catalog) Get(key string) (Record, bool) {
	rec, ok := c.entries[key]
	return rec, ok
}

// Set stores rec under key. An existing key keeps its position; a new key
// appends.
func (c *Catalog) Set(key string, rec Record) {
	if _, ok := c.entries[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = rec
}

// Clone returns a deep-enough copy: records are value types, so copying the
// key slice and map is sufficient.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		keys:    make([]string, len(c.keys)),
		entries: make(map[string]Record, len(c.entries)),
	}
	copy(out.keys, c.keys)
	for k, v := range c.entries {
		out.entries[k] = v
	}
	return out
}

// MarshalJSON encodes the catalog as a JSON object in insertion order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(c.entries[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	c.keys = nil
	c.entries = make(map[string]Record)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("catalog: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("catalog: expected string key, got %v", keyTok)
		}
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("catalog: entry %q: %w", key, err)
		}
		c.Set(key, rec)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Load reads a catalog from a JSON file. A missing file is equivalent to an
// empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes catalog JSON. Empty input is an empty catalog.
func Parse(data []byte) (*Catalog, error) {
	c := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return c, nil
}

// Save writes the catalog to path, pretty-printed with 2-space indentation
// for human diffability.
func (c *Catalog) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return nil
}

// Encode renders the catalog as indented JSON.
func (c *Catalog) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return append(data, '\n'), nil
}
