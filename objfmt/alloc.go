package objfmt

// AllocationPoint is the two-phase allocation protocol this package
// consumes. Reserve hands back memory whose validity is provisional;
// Commit makes it definitive. A false return from Commit means the
// reservation was invalidated (typically by concurrent collector
// activity) and the caller must start over with a fresh reservation —
// nothing written into the old one may be reused.
type AllocationPoint interface {
	// Reserve requests size bytes of provisional memory. The returned
	// address is Align-aligned. The only expected error is out-of-memory.
	Reserve(size uintptr) (Addr, error)

	// Commit finalizes the reservation at addr. A false return is not an
	// error; it signals retry-with-fresh-reservation.
	Commit(addr Addr, size uintptr) bool
}

// buildState tracks the reserve/fill/commit protocol in BuildVector.
// The invariant: reaching buildCommitted requires a fill produced after
// the most recent reservation. A failed commit always routes back through
// buildRetrying, never straight to another commit attempt.
type buildState int

const (
	buildRetrying buildState = iota // need a fresh reservation
	buildReserved                   // have provisional memory, not yet filled
	buildFilled                     // header and slots written, ready to commit
	buildCommitted                  // memory is definitively ours
)

// BuildVector allocates a vector object of the given slot count through
// the allocation point, with every slot initialized to the tagged zero
// immediate. It is the only operation in this package with a retry
// policy: commit failure discards the fill and restarts from a new
// reservation, because the old memory's identity is no longer trusted.
func (f *Format) BuildVector(slots int, ap AllocationPoint) (Addr, error) {
	if slots < 0 {
		panic("BuildVector: negative slot count")
	}

	size := (uintptr(slots) + 2) * WordBytes
	var addr Addr
	state := buildRetrying
	for state != buildCommitted {
		switch state {
		case buildRetrying:
			a, err := ap.Reserve(size)
			if err != nil {
				return nil, err
			}
			addr = a
			state = buildReserved

		case buildReserved:
			*wordPtr(addr, 0) = f.reg.VectorWrapper()
			*wordPtr(addr, 1) = TagInteger(Word(slots))
			for i := 0; i < slots; i++ {
				SetVectorSlot(addr, i, TagInteger(0))
			}
			state = buildFilled

		case buildFilled:
			if ap.Commit(addr, size) {
				state = buildCommitted
			} else {
				state = buildRetrying
			}
		}
	}
	return addr, nil
}
