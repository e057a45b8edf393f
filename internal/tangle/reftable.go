package tangle

import "sort"

// ReferenceTable indexes blocks by name in document order.
type ReferenceTable struct {
	byName map[string][]*Block
}

// NewReferenceTable indexes blocks under their name and noweb-ref. Callers
// pass non-excluded blocks only.
func NewReferenceTable(blocks []*Block) *ReferenceTable {
	t := &ReferenceTable{byName: make(map[string][]*Block)}
	for _, b := range blocks {
		for _, name := range b.Names() {
			t.byName[name] = append(t.byName[name], b)
		}
	}
	return t
}

// Lookup returns the blocks registered under name.
func (t *ReferenceTable) Lookup(name string) []*Block {
	return t.byName[name]
}

// Names returns every registered name, sorted.
func (t *ReferenceTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
