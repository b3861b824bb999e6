package objfmt

import (
	"math/rand/v2"
)

// PadFunc constructs a pad object in memory too small to hold real content.
// Pad construction belongs to the surrounding allocator, not this package;
// the initializer only delegates to it.
type PadFunc func(addr Addr, size uintptr)

// Format bundles everything an object-format operation needs: the wrapper
// registry, a seeded pseudo-random source, and the external pad
// constructor. Passing the random source in explicitly keeps stress runs
// reproducible from a seed.
//
// A Format is not safe for concurrent use: the random source is stateful.
// Build one Format per goroutine, or serialize calls.
type Format struct {
	reg *Registry
	rnd *rand.Rand
	pad PadFunc
}

// NewFormat creates a Format over the given registry. A nil rnd gets a
// randomly seeded source; a nil pad panics on the first undersized extent.
func NewFormat(reg *Registry, rnd *rand.Rand, pad PadFunc) *Format {
	if reg == nil {
		panic("NewFormat: nil registry")
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Format{reg: reg, rnd: rnd, pad: pad}
}

// Registry returns the wrapper registry this Format installs headers from.
func (f *Format) Registry() *Registry {
	return f.reg
}

// InitializeObject turns the raw memory extent [addr, addr+size) into an
// initialized vector object, or a pad if the extent is too small for the
// two-word header.
//
// Each slot is filled at random with either an immediate integer or a
// reference copied from refs, with even probability. An empty refs pool
// forces every slot to an immediate, which is how leaf objects for
// controlled test graphs get built.
//
// size must be a multiple of Align; an unaligned size is a programming
// error and panics. The only recoverable failure is ErrOutOfMemory from
// wrapper construction.
func (f *Format) InitializeObject(addr Addr, size uintptr, refs []Addr) error {
	if size&(Align-1) != 0 {
		panic("InitializeObject: size not aligned")
	}

	if size < 2*WordBytes {
		if f.pad == nil {
			panic("InitializeObject: undersized extent and no pad constructor")
		}
		f.pad(addr, size)
		return nil
	}

	t := size/WordBytes - 2
	*wordPtr(addr, 0) = f.reg.VectorWrapper()
	*wordPtr(addr, 1) = TagInteger(Word(t))
	for i := uintptr(0); i < t; i++ {
		*wordPtr(addr, 2+i) = f.randomSlotWord(refs)
	}
	return nil
}

// randomSlotWord draws one slot value: a masked immediate integer, or a
// reference chosen uniformly from refs. With an empty pool the draw is
// unconditionally an immediate.
func (f *Format) randomSlotWord(refs []Addr) Word {
	r := Word(f.rnd.Uint64())
	if len(refs) == 0 || r&1 == 1 {
		return (r &^ tagMask) | tagInteger
	}
	return ReferenceSlot(refs[int(r>>1)%len(refs)]).Word()
}
