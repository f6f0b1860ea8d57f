// Package triggers holds the Trigger Index: the ordered table of seed
// identifiers and the keywords that make each seed relevant.
package triggers

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed triggers.yaml
var defaultTable []byte

// Entry is one seed's trigger set.
type Entry struct {
	SeedID   string
	Triggers []string
}

// Index maps seed identifiers to trigger keywords, preserving declaration
// order. It is immutable after construction.
type Index struct {
	entries []Entry
	byID    map[string]int
}

// New builds an Index from entries. Triggers are lowercased and trimmed;
// empty and duplicate triggers are dropped. Duplicate seed identifiers are
// rejected.
func New(entries []Entry) (*Index, error) {
	idx := &Index{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		id := strings.TrimSpace(e.SeedID)
		if id == "" {
			return nil, fmt.Errorf("triggers: empty seed id")
		}
		if _, dup := idx.byID[id]; dup {
			return nil, fmt.Errorf("triggers: duplicate seed id %q", id)
		}
		set := make([]string, 0, len(e.Triggers))
		for _, t := range e.Triggers {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || slices.Contains(set, t) {
				continue
			}
			set = append(set, t)
		}
		idx.byID[id] = len(idx.entries)
		idx.entries = append(idx.entries, Entry{SeedID: id, Triggers: set})
	}
	return idx, nil
}

// Parse reads a YAML mapping of seed id → list of triggers. Mapping order is
// the declaration order used for tie-breaking.
func Parse(data []byte) (*Index, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("triggers: parse: %w", err)
	}
	if len(doc.Content) == 0 {
		return New(nil)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("triggers: line %d: expected a mapping of seed id to triggers", root.Line)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var list []string
		if err := val.Decode(&list); err != nil {
			return nil, fmt.Errorf("triggers: line %d: seed %q: %w", val.Line, key.Value, err)
		}
		entries = append(entries, Entry{SeedID: key.Value, Triggers: list})
	}
	return New(entries)
}

// Default returns the built-in Trigger Index.
func Default() *Index {
	idx, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("triggers: embedded table: %v", err))
	}
	return idx
}

// Load reads an Index from a YAML file, or returns Default when path is empty.
func Load(path string) (*Index, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("triggers: read %s: %w", path, err)
	}
	return Parse(data)
}

// TriggersFor returns a copy of the trigger set for id, or nil for unknown ids.
func (x *Index) TriggersFor(id string) []string {
	i, ok := x.byID[id]
	if !ok {
		return nil
	}
	return slices.Clone(x.entries[i].Triggers)
}

// SeedIDs returns all identifiers in declaration order.
func (x *Index) SeedIDs() []string {
	ids := make([]string, len(x.entries))
	for i, e := range x.entries {
		ids[i] = e.SeedID
	}
	return ids
}

// Has reports whether id has a trigger set.
func (x *Index) Has(id string) bool {
	_, ok := x.byID[id]
	return ok
}

// Len returns the number of seeds in the index.
func (x *Index) Len() int { return len(x.entries) }
