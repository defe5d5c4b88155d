package jit

import "github.com/launix-de/formula-compiler/complexnum"

// dataKind distinguishes the two label kinds spec.md §4.5's "Data
// section" walk materialises: the constant pool (values baked in at
// compile time) and the symbol-label map (values read from the host
// symbol table at materialisation time and written back after a run).
type dataKind int

const (
	dataConst dataKind = iota
	dataSymbol
	// dataScratch is an undeduplicated spill slot used to save a live
	// register's value across the one instruction that clobbers the
	// whole register file: the CALL emitted for BinaryOp ^ (pow).
	dataScratch
)

// dataEntry is one 16-byte slot in the data section: a packed (Re, Im)
// pair at byte offset index*16.
type dataEntry struct {
	kind  dataKind
	name  string             // symbol name, for dataSymbol
	value complexnum.Complex // literal value, for dataConst
}

// dataSection builds the label table a compiled program's machine code
// addresses, grounded on original_source/libs/Compiler.cpp's constant
// pool and symbol-label map (spec.md §4.5 "Data section"): literal
// values are deduplicated by value, symbol slots are deduplicated by
// name, and every label keeps its emission order so Runtime.Load (via
// writeInitialData) can lay out the backing memory in one pass.
type dataSection struct {
	entries    []dataEntry
	constIndex map[complexnum.Complex]int
	symIndex   map[string]int
}

func newDataSection() *dataSection {
	return &dataSection{
		constIndex: make(map[complexnum.Complex]int),
		symIndex:   make(map[string]int),
	}
}

// label returns the data-section offset (in bytes) of value's slot,
// creating one if this exact value hasn't been pooled yet.
func (d *dataSection) label(value complexnum.Complex) int32 {
	if idx, ok := d.constIndex[value]; ok {
		return int32(idx * 16)
	}
	idx := len(d.entries)
	d.entries = append(d.entries, dataEntry{kind: dataConst, value: value})
	d.constIndex[value] = idx
	return int32(idx * 16)
}

// symbolLabel returns the data-section offset of name's slot, creating
// one bound to the host symbol table entry if this is the first
// reference to name.
func (d *dataSection) symbolLabel(name string) int32 {
	if idx, ok := d.symIndex[name]; ok {
		return int32(idx * 16)
	}
	idx := len(d.entries)
	d.entries = append(d.entries, dataEntry{kind: dataSymbol, name: name})
	d.symIndex[name] = idx
	return int32(idx * 16)
}

// scratch allocates a fresh, never-deduplicated 16-byte slot for a
// single register spill around a call (see compilePow in
// compile_amd64.go). Each call gets its own slot rather than reusing a
// pooled one, since nested pow expressions may need several live at
// once.
func (d *dataSection) scratch() int32 {
	idx := len(d.entries)
	d.entries = append(d.entries, dataEntry{kind: dataScratch})
	return int32(idx * 16)
}

// size is the data section's total byte length.
func (d *dataSection) size() int {
	return len(d.entries) * 16
}

// symbolNames returns every distinct symbol name referenced, in
// data-section order — used by Runtime to know which host symbols to
// propagate writes back to after a run (spec.md §4.5's "propagates any
// referenced symbol bindings... to the host's live symbol memory").
func (d *dataSection) symbolNames() []string {
	var names []string
	for _, e := range d.entries {
		if e.kind == dataSymbol {
			names = append(names, e.name)
		}
	}
	return names
}
