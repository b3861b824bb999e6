package objfmt

import (
	"errors"
	"sync"
	"unsafe"
)

// ErrOutOfMemory is reported when backing storage for a wrapper or object
// cannot be obtained. It is propagated verbatim and never retried.
var ErrOutOfMemory = errors.New("objfmt: out of memory")

// ---------------------------------------------------------------------------
// Wrapper descriptor layout
// ---------------------------------------------------------------------------
//
// A wrapper is an immutable, fixed-layout descriptor whose fields describe
// the shape of its instances. Exactly two wrappers exist per process: the
// wrapper-of-wrappers (describes wrappers themselves, and carries the pad
// pattern) and the traceable-vector wrapper (describes every vector object
// this package produces).
//
// IMPORTANT: Once assigned, the field offsets and field values below must
// NEVER change — they are the object format the collector scans.

// Wrapper field offsets.
const (
	wrapperSelf    = 0 // self-describing wrapper pointer
	wrapperClass   = 1 // owning class pointer (dummy self-reference here)
	wrapperMask    = 2 // subtype mask, opaque discriminant
	wrapperFixed   = 3 // fixed part descriptor, 0 for vectors
	wrapperVersion = 4 // packed version word, see PackVersionWord
	wrapperShape   = 5 // shape pattern / pattern vector size
	wrapperPattern = 6 // pattern 0, present only on the wrapper-of-wrappers

	// basicWrapperWords is the size of a wrapper with no patterns.
	basicWrapperWords = wrapperShape + 1
)

// wrapperVersionNumber is the format version carried by both wrappers.
const wrapperVersionNumber = 2

// variableTagTraceable marks a traceable variable part in the version word.
const variableTagTraceable = 2

// Registry owns the two immortal wrapper descriptors and hands out their
// identities for use as header values. Wrappers are read-only once built
// and may be shared freely across goroutines.
type Registry struct {
	ww  *[basicWrapperWords + 1]Word // wrapper-of-wrappers, with pad pattern
	tvw *[basicWrapperWords]Word     // traceable-vector wrapper
}

// NewRegistry allocates and populates the two wrapper descriptors.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		ww:  new([basicWrapperWords + 1]Word),
		tvw: new([basicWrapperWords]Word),
	}
	wwRef := Word(uintptr(unsafe.Pointer(&r.ww[0])))

	// Wrapper-of-wrappers: self-describing root.
	r.ww[wrapperSelf] = wwRef
	r.ww[wrapperClass] = wwRef // dummy class
	r.ww[wrapperMask] = TagInteger(1)
	r.ww[wrapperFixed] = Word(wrapperShape-1)<<tagBits | 2
	r.ww[wrapperVersion] = PackVersionWord(wrapperVersionNumber, 0, 0, 0)
	r.ww[wrapperShape] = TagInteger(1)
	r.ww[wrapperPattern] = 1 // pad marker pattern

	// Traceable-vector wrapper: no fixed part, traceable variable part.
	r.tvw[wrapperSelf] = wwRef
	r.tvw[wrapperClass] = wwRef // dummy class
	r.tvw[wrapperMask] = TagInteger(1)
	r.tvw[wrapperFixed] = 0
	r.tvw[wrapperVersion] = PackVersionWord(wrapperVersionNumber, 0, 0, variableTagTraceable)
	r.tvw[wrapperShape] = 1 // no patterns

	return r, nil
}

// WrapperOfWrappers returns the identity of the wrapper-of-wrappers.
func (r *Registry) WrapperOfWrappers() Word {
	return r.ww[wrapperSelf]
}

// VectorWrapper returns the identity of the traceable-vector wrapper.
func (r *Registry) VectorWrapper() Word {
	return Word(uintptr(unsafe.Pointer(&r.tvw[0])))
}

// KnownWrapper reports whether w is one of the two registered wrapper
// identities.
func (r *Registry) KnownWrapper(w Word) bool {
	return w == r.WrapperOfWrappers() || w == r.VectorWrapper()
}

// ---------------------------------------------------------------------------
// Process-wide default registry
// ---------------------------------------------------------------------------

// defaultRegistry builds the process-wide wrapper pair exactly once, even
// under concurrent first use.
var defaultRegistry = sync.OnceValues(NewRegistry)

// EnsureWrappers makes sure the process-wide wrapper descriptors exist.
// The first call constructs them; subsequent calls are no-ops that succeed
// immediately. The only possible failure is ErrOutOfMemory.
func EnsureWrappers() error {
	_, err := defaultRegistry()
	return err
}

// DefaultRegistry returns the process-wide registry, constructing it on
// first use.
func DefaultRegistry() (*Registry, error) {
	return defaultRegistry()
}

// WrapperOfWrappers returns the process-wide wrapper-of-wrappers identity.
// Panics if the registry cannot be constructed.
func WrapperOfWrappers() Word {
	return mustDefaultRegistry().WrapperOfWrappers()
}

// VectorWrapper returns the process-wide traceable-vector wrapper identity.
// Panics if the registry cannot be constructed.
func VectorWrapper() Word {
	return mustDefaultRegistry().VectorWrapper()
}

func mustDefaultRegistry() *Registry {
	r, err := defaultRegistry()
	if err != nil {
		panic("objfmt: wrapper registry construction failed: " + err.Error())
	}
	return r
}
