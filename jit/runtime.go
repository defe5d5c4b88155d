package jit

import (
	"syscall"
	"unsafe"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/complexnum"
	"github.com/launix-de/formula-compiler/symtab"
)

// Runtime is the scoped resource a compiled Program is loaded into: one
// executable mapping for the code, one read-write mapping for the data
// section, grounded on
// _examples/launix-de-memcp/scm/jit.go's allocExec/makeRX two-phase
// mmap+mprotect pattern. Spec.md §5: "the memory backing emitted code is
// released when the runtime is dropped, invalidating every function
// pointer obtained from it."
type Runtime struct {
	prog *Program
	code []byte // RX mapping
	data []byte // RW mapping, 16 bytes per data-section label
}

// Load materialises prog into fresh executable/data mappings, copying
// table's current values into every referenced symbol slot (spec.md
// §4.5's data-section walk: "for each referenced symbol look up its live
// value in the host table and emit it").
func Load(prog *Program, table *symtab.Table) (*Runtime, error) {
	dataSize := prog.data.size()
	var data []byte
	var err error
	if dataSize > 0 {
		data, err = mmapData(dataSize)
		if err != nil {
			return nil, &CompileError{Kind: ErrInternal, Message: "mmap data: " + err.Error()}
		}
	}

	// The compiled code references the data section's runtime address,
	// which only exists after the mmap above, so every emitted
	// placeholder immediate is patched into a private copy before the
	// code is ever mapped executable.
	patched := append([]byte(nil), prog.code...)
	if len(data) > 0 {
		base := uint64(uintptr(unsafe.Pointer(&data[0])))
		for _, fx := range prog.dataFixups {
			addr := base + uint64(fx.slot)
			putU64(patched[fx.codePos:fx.codePos+8], addr)
		}
	}

	code, err := mmapExec(patched)
	if err != nil {
		if data != nil {
			syscall.Munmap(data)
		}
		return nil, &CompileError{Kind: ErrInternal, Message: "mmap code: " + err.Error()}
	}

	rt := &Runtime{prog: prog, code: code, data: data}
	rt.writeInitialData(table)
	return rt, nil
}

func putU64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

func (rt *Runtime) writeInitialData(table *symtab.Table) {
	for i, e := range rt.prog.data.entries {
		var v complexnum.Complex
		switch e.kind {
		case dataConst:
			v = e.value
		case dataSymbol:
			v = table.Get(e.name)
		}
		rt.putSlot(i, v)
	}
}

func (rt *Runtime) putSlot(idx int, v complexnum.Complex) {
	off := idx * 16
	*(*float64)(unsafe.Pointer(&rt.data[off])) = v.Re
	*(*float64)(unsafe.Pointer(&rt.data[off+8])) = v.Im
}

func (rt *Runtime) getSlot(idx int) complexnum.Complex {
	off := idx * 16
	return complexnum.New(
		*(*float64)(unsafe.Pointer(&rt.data[off])),
		*(*float64)(unsafe.Pointer(&rt.data[off+8])),
	)
}

// Run executes the compiled function for section, propagating any
// symbol writes the code made back to table (spec.md §4.5's write-back
// contract) before returning the result.
func (rt *Runtime) Run(section ast.Section, table *symtab.Table) (complexnum.Complex, error) {
	var entry int32
	switch section {
	case ast.SectionInitialize:
		if !rt.prog.hasInit {
			return complexnum.Zero, &CompileError{Kind: ErrInternal, Message: "initialize not compiled"}
		}
		entry = rt.prog.initEntry
	case ast.SectionIterate:
		if !rt.prog.hasIter {
			return complexnum.Zero, &CompileError{Kind: ErrInternal, Message: "iterate not compiled"}
		}
		entry = rt.prog.iterEntry
	case ast.SectionBailout:
		if !rt.prog.hasBail {
			return complexnum.Zero, &CompileError{Kind: ErrInternal, Message: "bailout not compiled"}
		}
		entry = rt.prog.bailEntry
	default:
		return complexnum.Zero, &CompileError{Kind: ErrInternal, Message: "section not compiled"}
	}

	codeAddr := uintptr(unsafe.Pointer(&rt.code[entry]))
	fnVal := &codeAddr
	fn := *(*func() complexnum.Complex)(unsafe.Pointer(&fnVal))
	result := fn()

	for _, name := range rt.prog.data.symbolNames() {
		idx := rt.prog.data.symIndex[name]
		table.Set(name, rt.getSlot(idx))
	}
	table.Set(symtab.ResultKey, result)
	return result, nil
}

// Release unmaps the code and data pages. Every function pointer
// obtained from this Runtime is invalid after Release returns.
func (rt *Runtime) Release() error {
	var err error
	if rt.code != nil {
		err = syscall.Munmap(rt.code)
		rt.code = nil
	}
	if rt.data != nil {
		if e := syscall.Munmap(rt.data); e != nil && err == nil {
			err = e
		}
		rt.data = nil
	}
	return err
}

func mmapExec(code []byte) ([]byte, error) {
	n := roundToPage(len(code))
	b, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, err
	}
	copy(b, code)
	if err := syscall.Mprotect(b, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(b)
		return nil, err
	}
	return b[:len(code):len(code)], nil
}

func mmapData(size int) ([]byte, error) {
	n := roundToPage(size)
	b, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return b[:size:size], nil
}

func roundToPage(n int) int {
	page := syscall.Getpagesize()
	return (n + page - 1) &^ (page - 1)
}
