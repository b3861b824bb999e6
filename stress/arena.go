package stress

import (
	"math/rand/v2"
	"unsafe"

	"github.com/chazu/tracefmt/objfmt"
)

// Arena is an in-process bump allocator implementing the reserve/commit
// protocol objfmt consumes. It exists so stress runs can exercise the
// builder's retry loop without a real collector: a configurable fraction
// of commits is refused, exactly as a collector invalidating reservations
// would.
//
// The arena keeps every segment it allocates, so object addresses handed
// out stay valid for the arena's lifetime. Nothing is reclaimed.
type Arena struct {
	segmentWords int
	segments     [][]objfmt.Word
	cur          []objfmt.Word
	off          int // word offset of the next free word in cur

	rnd      *rand.Rand
	failRate float64

	pending      objfmt.Addr // outstanding reservation, nil if none
	pendingWords int

	pads    int
	retries int
}

// NewArena creates an arena with the given segment size in words. rnd
// drives commit-failure injection at the given rate; a nil rnd disables
// injection regardless of rate.
func NewArena(segmentWords int, failRate float64, rnd *rand.Rand) *Arena {
	if segmentWords < 2 {
		panic("NewArena: segment too small for an object header")
	}
	if rnd == nil {
		failRate = 0
	}
	return &Arena{
		segmentWords: segmentWords,
		rnd:          rnd,
		failRate:     failRate,
	}
}

// Reserve hands out a provisional extent of size bytes. The extent is not
// the arena's to reuse until Commit accepts or refuses it.
func (a *Arena) Reserve(size uintptr) (objfmt.Addr, error) {
	if a.pending != nil {
		panic("Arena.Reserve: reservation already outstanding")
	}
	addr := a.alloc(size)
	a.pending = addr
	a.pendingWords = int(size / objfmt.WordBytes)
	return addr, nil
}

// Commit finalizes the outstanding reservation. With failure injection
// enabled it refuses a random fraction of commits; a refused extent is
// converted to a pad so the heap stays walkable, and the caller must
// reserve afresh.
func (a *Arena) Commit(addr objfmt.Addr, size uintptr) bool {
	if a.pending == nil || addr != a.pending {
		panic("Arena.Commit: commit does not match outstanding reservation")
	}
	words := int(size / objfmt.WordBytes)
	if words != a.pendingWords {
		panic("Arena.Commit: size does not match reservation")
	}
	a.pending = nil

	if a.failRate > 0 && a.rnd.Float64() < a.failRate {
		a.retries++
		a.MakePad(addr, size)
		return false
	}
	return true
}

// MakePad constructs an opaque pad object over [addr, addr+size). The
// first word carries the pad tag pattern (10) with the byte size in the
// high bits; the rest is left as is. Only the arena ever interprets pads.
func (a *Arena) MakePad(addr objfmt.Addr, size uintptr) {
	if size < objfmt.WordBytes {
		return // too small even for a pad marker
	}
	*(*objfmt.Word)(unsafe.Pointer(addr)) = objfmt.Word(size)<<2 | 2
	a.pads++
}

// AllocRaw hands out a committed raw extent immediately, bypassing the
// reserve/commit protocol and failure injection. Stress runs use it for
// extents handed straight to InitializeObject, which has no retry
// contract of its own.
func (a *Arena) AllocRaw(size uintptr) objfmt.Addr {
	if a.pending != nil {
		panic("Arena.AllocRaw: reservation outstanding")
	}
	return a.alloc(size)
}

// alloc bumps out size bytes, starting a new segment (and padding the old
// segment's tail) when the current one cannot hold the request.
func (a *Arena) alloc(size uintptr) objfmt.Addr {
	if size == 0 || size%objfmt.WordBytes != 0 {
		panic("Arena.alloc: size must be a positive multiple of the word size")
	}
	words := int(size / objfmt.WordBytes)
	if words > a.segmentWords {
		// Oversized request gets a dedicated segment.
		seg := make([]objfmt.Word, words)
		a.segments = append(a.segments, seg)
		return objfmt.Addr(unsafe.Pointer(&seg[0]))
	}

	if a.cur == nil || a.off+words > len(a.cur) {
		if a.cur != nil && a.off < len(a.cur) {
			tail := uintptr(len(a.cur)-a.off) * objfmt.WordBytes
			a.MakePad(objfmt.Addr(unsafe.Pointer(&a.cur[a.off])), tail)
		}
		a.cur = make([]objfmt.Word, a.segmentWords)
		a.segments = append(a.segments, a.cur)
		a.off = 0
	}

	addr := objfmt.Addr(unsafe.Pointer(&a.cur[a.off]))
	a.off += words
	return addr
}

// Pads returns how many pad objects the arena has constructed.
func (a *Arena) Pads() int { return a.pads }

// Retries returns how many commits the arena has refused.
func (a *Arena) Retries() int { return a.retries }

// Segments returns how many segments the arena has allocated.
func (a *Arena) Segments() int { return len(a.segments) }
