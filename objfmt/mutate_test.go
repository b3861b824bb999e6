package objfmt

import (
	"sort"
	"testing"
)

func TestWriteRandomSlotStaysValid(t *testing.T) {
	f, _ := testFormat(t)

	leaf, leafMem := extent(4)
	if err := f.InitializeObject(leaf, 4*WordBytes, nil); err != nil {
		t.Fatal(err)
	}
	refs := []Addr{leaf}

	addr, err := f.BuildVector(8, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}

	for k := 0; k < 200; k++ {
		f.WriteRandomSlot(addr, refs)
	}
	for i := 0; i < 8; i++ {
		w := VectorSlot(addr, i)
		if IsInteger(w) {
			continue
		}
		if w != ReferenceSlot(leaf).Word() {
			t.Fatalf("slot %d holds an address outside the pool: %#x", i, w)
		}
	}
	f.CheckObject(addr)
	_ = leafMem
}

func TestWriteRandomSlotEmptyPoolWritesImmediates(t *testing.T) {
	f, _ := testFormat(t)
	addr, err := f.BuildVector(4, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 100; k++ {
		f.WriteRandomSlot(addr, nil)
	}
	for i := 0; i < 4; i++ {
		if !IsInteger(VectorSlot(addr, i)) {
			t.Errorf("slot %d not an immediate after empty-pool writes", i)
		}
	}
}

func TestWriteRandomSlotIgnoresNonVectors(t *testing.T) {
	f, _ := testFormat(t)

	// A wrapper is not a vector; its fields must survive untouched.
	w := f.Registry().VectorWrapper()
	addr := DecodeSlot(w).Addr()
	before := make([]Word, basicWrapperWords)
	for i := range before {
		before[i] = wordAt(addr, uintptr(i))
	}

	f.WriteRandomSlot(addr, nil)

	for i := range before {
		if wordAt(addr, uintptr(i)) != before[i] {
			t.Fatalf("wrapper word %d mutated", i)
		}
	}
}

func TestWriteRandomSlotIgnoresEmptyVector(t *testing.T) {
	f, _ := testFormat(t)
	addr, err := f.BuildVector(0, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	f.WriteRandomSlot(addr, nil) // must not touch memory past the header
	if got := VectorLen(addr); got != 0 {
		t.Errorf("VectorLen = %d after no-op write", got)
	}
}

func TestSwapTwoSlotsIsPermutation(t *testing.T) {
	f, _ := testFormat(t)

	addr, err := f.BuildVector(9, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	// Distinct recognizable immediates.
	for i := 0; i < 9; i++ {
		SetVectorSlot(addr, i, TagInteger(Word(100+i)))
	}
	want := slotMultiset(addr)

	for k := 0; k < 500; k++ {
		f.SwapTwoSlots(addr)
		got := slotMultiset(addr)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("swap %d changed the slot multiset", k)
			}
		}
	}
}

func TestSwapTwoSlotsIgnoresNonVectorAndEmpty(t *testing.T) {
	f, _ := testFormat(t)

	empty, err := f.BuildVector(0, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	f.SwapTwoSlots(empty)
	if VectorLen(empty) != 0 {
		t.Error("empty vector mutated by swap")
	}

	wrapper := DecodeSlot(f.Registry().VectorWrapper()).Addr()
	before := wordAt(wrapper, wrapperVersion)
	f.SwapTwoSlots(wrapper)
	if wordAt(wrapper, wrapperVersion) != before {
		t.Error("non-vector mutated by swap")
	}
}

func TestReadRandomSlotReturnsSlotContents(t *testing.T) {
	f, _ := testFormat(t)

	leaf, leafMem := extent(2)
	if err := f.InitializeObject(leaf, 2*WordBytes, nil); err != nil {
		t.Fatal(err)
	}

	addr, err := f.BuildVector(3, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	SetVectorSlot(addr, 0, ReferenceSlot(leaf).Word())
	SetVectorSlot(addr, 1, ReferenceSlot(leaf).Word())
	SetVectorSlot(addr, 2, ReferenceSlot(leaf).Word())

	s := f.ReadRandomSlot(addr)
	if !s.IsReference() || s.Addr() != leaf {
		t.Error("ReadRandomSlot did not return the stored reference")
	}
	_ = leafMem
}

func TestReadRandomSlotImmediateStaysImmediate(t *testing.T) {
	// An all-integer vector must come back as immediates, never as raw
	// words reinterpreted as addresses.
	f, _ := testFormat(t)
	addr, err := f.BuildVector(4, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	s := f.ReadRandomSlot(addr)
	if !s.IsImmediate() || s.Value() != 0 {
		t.Errorf("ReadRandomSlot on zero-filled vector = %+v, want immediate 0", s)
	}
}

func TestReadRandomSlotFallback(t *testing.T) {
	f, _ := testFormat(t)

	empty, err := f.BuildVector(0, &scriptedAP{})
	if err != nil {
		t.Fatal(err)
	}
	if s := f.ReadRandomSlot(empty); !s.IsReference() || s.Addr() != empty {
		t.Error("empty vector fallback is not the object itself")
	}

	wrapper := DecodeSlot(f.Registry().VectorWrapper()).Addr()
	if s := f.ReadRandomSlot(wrapper); !s.IsReference() || s.Addr() != wrapper {
		t.Error("non-vector fallback is not the object itself")
	}
}

// slotMultiset returns the sorted slot values of the vector at addr.
func slotMultiset(addr Addr) []Word {
	t := VectorLen(addr)
	out := make([]Word, t)
	for i := 0; i < t; i++ {
		out[i] = VectorSlot(addr, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
