// Library indexes a set of loaded FormulaEntry values by name, grounded
// on _examples/launix-de-memcp/storage/index.go's btree.BTreeG-backed
// StorageIndex (NewG with a Less func, ReplaceOrInsert, AscendRange for
// ordered range scans) — here reused for prefix lookups over a library's
// entry names instead of row keys.
package formulalib

import "github.com/google/btree"

type libraryRecord struct {
	name  string
	entry FormulaEntry
}

// Library is an ordered, name-indexed collection of formula-library
// entries, supporting O(log n) exact lookup and ordered prefix scans.
type Library struct {
	tree *btree.BTreeG[libraryRecord]
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{
		tree: btree.NewG[libraryRecord](8, func(a, b libraryRecord) bool {
			return a.name < b.name
		}),
	}
}

// Add inserts or replaces the entry with this name.
func (l *Library) Add(e FormulaEntry) {
	l.tree.ReplaceOrInsert(libraryRecord{name: e.Name, entry: e})
}

// AddAll inserts every entry in entries.
func (l *Library) AddAll(entries []FormulaEntry) {
	for _, e := range entries {
		l.Add(e)
	}
}

// Lookup returns the entry named name, if present.
func (l *Library) Lookup(name string) (FormulaEntry, bool) {
	r, ok := l.tree.Get(libraryRecord{name: name})
	return r.entry, ok
}

// Len returns the number of entries in the library.
func (l *Library) Len() int { return l.tree.Len() }

// prefixUpperBound returns the smallest string that is lexicographically
// greater than every string with the given prefix, used as an exclusive
// AscendRange upper bound.
func prefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return "" // prefix is all 0xff bytes: no finite upper bound, caller falls back to Ascend
}

// ByPrefix returns every entry whose name starts with prefix, in
// ascending name order (the byte-range scan the DOMAIN STACK table
// promises: a btree.BTreeG ordered index of library entries by name).
func (l *Library) ByPrefix(prefix string) []FormulaEntry {
	var out []FormulaEntry
	visit := func(r libraryRecord) bool {
		out = append(out, r.entry)
		return true
	}
	if upper := prefixUpperBound(prefix); upper != "" {
		l.tree.AscendRange(libraryRecord{name: prefix}, libraryRecord{name: upper}, visit)
	} else {
		l.tree.AscendGreaterOrEqual(libraryRecord{name: prefix}, visit)
	}
	return out
}
