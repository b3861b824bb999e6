package objfmt

// Mutation and inspection of live vector objects. These simulate the
// client activity a collector has to stay correct under: overwrites,
// permutations, and reads racing against scanning and relocation.

// WriteRandomSlot overwrites one randomly chosen slot of the vector at
// addr with a fresh random immediate or a reference from refs, under the
// same probability rule as InitializeObject. Objects that are not
// non-empty vectors are left untouched.
func (f *Format) WriteRandomSlot(addr Addr, refs []Addr) {
	if !f.reg.IsVector(addr) {
		return
	}
	t := VectorLen(addr)
	if t == 0 {
		return
	}
	SetVectorSlot(addr, f.rnd.IntN(t), f.randomSlotWord(refs))
}

// SwapTwoSlots exchanges the contents of two randomly chosen slots of the
// vector at addr. The two indices may coincide, making the swap a no-op;
// either way the multiset of slot values is unchanged. Objects that are
// not non-empty vectors are left untouched.
func (f *Format) SwapTwoSlots(addr Addr) {
	if !f.reg.IsVector(addr) {
		return
	}
	t := VectorLen(addr)
	if t == 0 {
		return
	}
	i := f.rnd.IntN(t)
	j := f.rnd.IntN(t)
	wi := VectorSlot(addr, i)
	SetVectorSlot(addr, i, VectorSlot(addr, j))
	SetVectorSlot(addr, j, wi)
}

// ReadRandomSlot returns the decoded contents of one randomly chosen slot
// of the vector at addr. Immediate slots come back as immediate Slots
// rather than being reinterpreted as addresses; callers that expected a
// reference can tell the difference. For a non-vector or empty vector,
// the fallback is a reference to addr itself.
func (f *Format) ReadRandomSlot(addr Addr) Slot {
	if f.reg.IsVector(addr) {
		if t := VectorLen(addr); t > 0 {
			return DecodeSlot(VectorSlot(addr, f.rnd.IntN(t)))
		}
	}
	return ReferenceSlot(addr)
}
