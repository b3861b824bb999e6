// Package snapshot captures and rebuilds heap shapes produced by the
// objfmt object format. A snapshot is an address-free description of the
// object graph reachable from a set of roots: objects get dense IDs in
// discovery order, and references are recorded by ID. That makes a heap
// shape reproducible across processes, which is what collector stress
// runs need to replay an interesting heap.
package snapshot

import (
	"fmt"

	"github.com/chazu/tracefmt/objfmt"
)

// FormatVersion identifies the snapshot wire layout.
const FormatVersion = 1

// ObjID identifies an object within a snapshot. IDs are dense and
// assigned in discovery order from the roots.
type ObjID uint64

// Slot is one recorded slot: either an immediate value or a reference to
// another snapshot object.
type Slot struct {
	Ref   bool   `cbor:"1,keyasint"`           // true if Value is an ObjID
	Value uint64 `cbor:"2,keyasint,omitempty"` // immediate payload or referent ID
}

// Object is one recorded vector object.
type Object struct {
	ID    ObjID  `cbor:"1,keyasint"`
	Slots []Slot `cbor:"2,keyasint,omitempty"`
}

// Heap is a complete snapshot: the objects reachable from Roots, in
// discovery order.
type Heap struct {
	Version uint32   `cbor:"1,keyasint"`
	Roots   []ObjID  `cbor:"2,keyasint,omitempty"`
	Objects []Object `cbor:"3,keyasint,omitempty"`
}

// Capture walks the object graph from roots and records every reachable
// vector. Every root and every referent must be a vector of f's registry;
// anything else means the graph was not produced by this format and is
// reported as an error.
func Capture(f *objfmt.Format, roots []objfmt.Addr) (*Heap, error) {
	h := &Heap{Version: FormatVersion}
	reg := f.Registry()

	ids := make(map[objfmt.Addr]ObjID)
	var queue []objfmt.Addr

	visit := func(addr objfmt.Addr) (ObjID, error) {
		if id, ok := ids[addr]; ok {
			return id, nil
		}
		if !reg.IsVector(addr) {
			return 0, fmt.Errorf("snapshot: reachable object is not a vector of this format")
		}
		id := ObjID(len(ids))
		ids[addr] = id
		queue = append(queue, addr)
		return id, nil
	}

	for _, root := range roots {
		id, err := visit(root)
		if err != nil {
			return nil, err
		}
		h.Roots = append(h.Roots, id)
	}

	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]

		obj := Object{ID: ids[addr]}
		n := objfmt.VectorLen(addr)
		for i := 0; i < n; i++ {
			s := objfmt.DecodeSlot(objfmt.VectorSlot(addr, i))
			if s.IsImmediate() {
				obj.Slots = append(obj.Slots, Slot{Value: uint64(s.Value())})
				continue
			}
			id, err := visit(s.Addr())
			if err != nil {
				return nil, err
			}
			obj.Slots = append(obj.Slots, Slot{Ref: true, Value: uint64(id)})
		}
		h.Objects = append(h.Objects, obj)
	}

	return h, nil
}

// Restore rebuilds the snapshot's heap through the allocation point and
// returns the addresses of the snapshot's roots, in order. Objects are
// built empty first, then slots are linked, so cycles restore correctly.
func Restore(h *Heap, f *objfmt.Format, ap objfmt.AllocationPoint) ([]objfmt.Addr, error) {
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", h.Version)
	}

	addrs := make([]objfmt.Addr, len(h.Objects))
	for i, obj := range h.Objects {
		if obj.ID != ObjID(i) {
			return nil, fmt.Errorf("snapshot: object %d carries ID %d, want discovery order", i, obj.ID)
		}
		addr, err := f.BuildVector(len(obj.Slots), ap)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}

	for i, obj := range h.Objects {
		for j, s := range obj.Slots {
			if !s.Ref {
				objfmt.SetVectorSlot(addrs[i], j, objfmt.ImmediateSlot(objfmt.Word(s.Value)).Word())
				continue
			}
			if s.Value >= uint64(len(addrs)) {
				return nil, fmt.Errorf("snapshot: object %d slot %d references unknown ID %d", i, j, s.Value)
			}
			objfmt.SetVectorSlot(addrs[i], j, objfmt.ReferenceSlot(addrs[s.Value]).Word())
		}
	}

	roots := make([]objfmt.Addr, len(h.Roots))
	for i, id := range h.Roots {
		if uint64(id) >= uint64(len(addrs)) {
			return nil, fmt.Errorf("snapshot: root %d references unknown ID %d", i, id)
		}
		roots[i] = addrs[id]
	}
	return roots, nil
}
