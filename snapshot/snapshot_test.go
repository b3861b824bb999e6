package snapshot

import (
	"math/rand/v2"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/tracefmt/objfmt"
	"github.com/chazu/tracefmt/stress"
)

func testSetup(t *testing.T, seed uint64) (*objfmt.Format, *stress.Arena) {
	t.Helper()
	reg, err := objfmt.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	arena := stress.NewArena(1024, 0, nil)
	f := objfmt.NewFormat(reg, rand.New(rand.NewPCG(seed, 0)), arena.MakePad)
	return f, arena
}

// buildHeap creates a small heap: two leaves, a vector referencing them,
// and a root referencing everything including itself (a cycle).
func buildHeap(t *testing.T, f *objfmt.Format, arena *stress.Arena) []objfmt.Addr {
	t.Helper()

	leafA, err := f.BuildVector(2, arena)
	if err != nil {
		t.Fatal(err)
	}
	leafB, err := f.BuildVector(0, arena)
	if err != nil {
		t.Fatal(err)
	}
	mid, err := f.BuildVector(3, arena)
	if err != nil {
		t.Fatal(err)
	}
	objfmt.SetVectorSlot(mid, 0, objfmt.ReferenceSlot(leafA).Word())
	objfmt.SetVectorSlot(mid, 1, objfmt.ImmediateSlot(41).Word())
	objfmt.SetVectorSlot(mid, 2, objfmt.ReferenceSlot(leafB).Word())

	root, err := f.BuildVector(3, arena)
	if err != nil {
		t.Fatal(err)
	}
	objfmt.SetVectorSlot(root, 0, objfmt.ReferenceSlot(mid).Word())
	objfmt.SetVectorSlot(root, 1, objfmt.ReferenceSlot(root).Word()) // cycle
	objfmt.SetVectorSlot(root, 2, objfmt.ImmediateSlot(7).Word())

	return []objfmt.Addr{root}
}

func TestCaptureAssignsDiscoveryOrderIDs(t *testing.T) {
	f, arena := testSetup(t, 1)
	roots := buildHeap(t, f, arena)

	h, err := Capture(f, roots)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if h.Version != FormatVersion {
		t.Errorf("Version = %d", h.Version)
	}
	if len(h.Objects) != 4 {
		t.Fatalf("captured %d objects, want 4", len(h.Objects))
	}
	if len(h.Roots) != 1 || h.Roots[0] != 0 {
		t.Errorf("Roots = %v, want [0]", h.Roots)
	}
	for i, obj := range h.Objects {
		if obj.ID != ObjID(i) {
			t.Errorf("object %d carries ID %d", i, obj.ID)
		}
	}

	// The root's self-reference survives as a reference to ID 0.
	root := h.Objects[0]
	if !root.Slots[1].Ref || root.Slots[1].Value != 0 {
		t.Errorf("root self-reference captured as %+v", root.Slots[1])
	}
	if root.Slots[2].Ref || root.Slots[2].Value != 7 {
		t.Errorf("root immediate captured as %+v", root.Slots[2])
	}
}

func TestCaptureSharedReferent(t *testing.T) {
	// Two slots referencing the same object must capture as the same ID.
	f, arena := testSetup(t, 2)
	leaf, err := f.BuildVector(0, arena)
	if err != nil {
		t.Fatal(err)
	}
	root, err := f.BuildVector(2, arena)
	if err != nil {
		t.Fatal(err)
	}
	objfmt.SetVectorSlot(root, 0, objfmt.ReferenceSlot(leaf).Word())
	objfmt.SetVectorSlot(root, 1, objfmt.ReferenceSlot(leaf).Word())

	h, err := Capture(f, []objfmt.Addr{root})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Objects) != 2 {
		t.Fatalf("captured %d objects, want 2", len(h.Objects))
	}
	s := h.Objects[0].Slots
	if s[0].Value != s[1].Value {
		t.Error("shared referent captured under two IDs")
	}
}

func TestCaptureRejectsForeignObjects(t *testing.T) {
	f, _ := testSetup(t, 3)
	var junk [4]objfmt.Word
	junk[0] = objfmt.TagInteger(9)
	if _, err := Capture(f, []objfmt.Addr{objfmt.Addr(unsafe.Pointer(&junk[0]))}); err == nil {
		t.Error("Capture accepted a non-vector root")
	}
}

func TestRoundTrip(t *testing.T) {
	f, arena := testSetup(t, 4)
	roots := buildHeap(t, f, arena)

	h, err := Capture(f, roots)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	data, err := Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	h2, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(h, h2); diff != "" {
		t.Fatalf("marshal round trip mismatch (-want +got):\n%s", diff)
	}

	// Restore into a fresh arena and capture again: the shape must be
	// identical, and every restored object must validate.
	f2, arena2 := testSetup(t, 5)
	roots2, err := Restore(h2, f2, arena2)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	for _, obj := range collectObjects(f2, roots2) {
		f2.CheckObject(obj)
	}
	h3, err := Capture(f2, roots2)
	if err != nil {
		t.Fatalf("Capture after restore: %v", err)
	}
	if diff := cmp.Diff(h, h3); diff != "" {
		t.Fatalf("restored heap shape differs (-want +got):\n%s", diff)
	}

	// Canonical encoding: equal heaps, equal bytes.
	data3, err := Marshal(h3)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(data3) {
		t.Error("canonical encodings of equal heaps differ")
	}
}

func TestRestoreRejectsBadInput(t *testing.T) {
	f, arena := testSetup(t, 6)

	if _, err := Restore(&Heap{Version: 99}, f, arena); err == nil {
		t.Error("Restore accepted an unknown version")
	}

	bad := &Heap{
		Version: FormatVersion,
		Roots:   []ObjID{5},
		Objects: []Object{{ID: 0}},
	}
	if _, err := Restore(bad, f, arena); err == nil {
		t.Error("Restore accepted an out-of-range root")
	}

	bad = &Heap{
		Version: FormatVersion,
		Objects: []Object{{ID: 0, Slots: []Slot{{Ref: true, Value: 9}}}},
	}
	if _, err := Restore(bad, f, arena); err == nil {
		t.Error("Restore accepted an out-of-range slot reference")
	}
}

// collectObjects walks the heap from roots and returns every reachable
// object address.
func collectObjects(f *objfmt.Format, roots []objfmt.Addr) []objfmt.Addr {
	seen := make(map[objfmt.Addr]bool)
	var out []objfmt.Addr
	var walk func(addr objfmt.Addr)
	walk = func(addr objfmt.Addr) {
		if seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
		for i := 0; i < objfmt.VectorLen(addr); i++ {
			s := objfmt.DecodeSlot(objfmt.VectorSlot(addr, i))
			if s.IsReference() {
				walk(s.Addr())
			}
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
