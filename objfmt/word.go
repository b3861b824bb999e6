package objfmt

import "unsafe"

// Word is the universal storage unit of the object format: a fixed-width
// unsigned integer sized to the platform pointer width. Headers, lengths,
// and slots are all Words.
//
// The two low-order bits of a Word discriminate its meaning:
//   - Bit pattern 01: immediate integer, value stored in the high bits.
//   - Even low bit:   reference, the Word is the pointer-aligned address
//     of another object's header.
//
// Other low-bit patterns mark pads and descriptor shape fields; this
// package stores them but never interprets them as data.
type Word uintptr

// Addr is the address of an object's header in externally owned memory.
type Addr unsafe.Pointer

// Platform word geometry.
const (
	// WordBytes is the size of a Word in bytes (4 on 32-bit, 8 on 64-bit).
	WordBytes = 4 << (^uintptr(0) >> 63)

	// WordBits is the size of a Word in bits.
	WordBits = WordBytes * 8

	// Align is the required alignment of object addresses and sizes.
	Align = WordBytes
)

// Tag constants.
const (
	tagBits         = 2
	tagMask    Word = (1 << tagBits) - 1
	tagInteger Word = 1 // bit pattern 01
)

// ---------------------------------------------------------------------------
// Integer tagging
// ---------------------------------------------------------------------------

// TagInteger encodes v as an immediate-integer Word.
// Values wider than WordBits-2 bits lose their high bits; callers must
// pre-mask if that matters to them.
func TagInteger(v Word) Word {
	return (v << tagBits) | tagInteger
}

// UntagInteger recovers the value from an immediate-integer Word.
func UntagInteger(w Word) Word {
	return w >> tagBits
}

// IsInteger reports whether w carries the immediate-integer tag (01).
func IsInteger(w Word) bool {
	return w&tagMask == tagInteger
}

// IsReference reports whether w is a reference. References are aligned
// addresses, so an even low bit identifies them.
func IsReference(w Word) bool {
	return w&1 == 0
}

// ---------------------------------------------------------------------------
// Version word
// ---------------------------------------------------------------------------

// PackVersionWord packs a wrapper's version descriptor field:
//
//	VERSION- ........ FLAGS--- ........ ...ES---VT-
//
// version occupies the high byte, variableFlags sits at bit 16, exactSize
// at bit 3, and variableTag in the low 3 bits. Each argument must fit its
// field width; an oversized argument is a programming error and panics.
func PackVersionWord(version, variableFlags, exactSize, variableTag Word) Word {
	if version&0xFF != version {
		panic("PackVersionWord: version exceeds 8 bits")
	}
	if variableFlags&0xFF != variableFlags {
		panic("PackVersionWord: variable flags exceed 8 bits")
	}
	if exactSize&0x1F != exactSize {
		panic("PackVersionWord: exact size exceeds 5 bits")
	}
	if variableTag&0x7 != variableTag {
		panic("PackVersionWord: variable tag exceeds 3 bits")
	}
	return (version << (WordBits - 8)) |
		(variableFlags << 16) |
		(exactSize << 3) |
		variableTag
}

// UnpackVersionWord extracts the fields packed by PackVersionWord.
func UnpackVersionWord(w Word) (version, variableFlags, exactSize, variableTag Word) {
	version = (w >> (WordBits - 8)) & 0xFF
	variableFlags = (w >> 16) & 0xFF
	exactSize = (w >> 3) & 0x1F
	variableTag = w & 0x7
	return
}

// ---------------------------------------------------------------------------
// Slot: decoded slot values
// ---------------------------------------------------------------------------

// Slot is a decoded slot value: either an immediate integer or a reference
// to another object. It keeps the raw tagged Word internally, so encoding
// and decoding are free; the bit tests live here and nowhere else.
type Slot struct {
	word Word
}

// ImmediateSlot builds an immediate-integer slot. The value is masked to
// the representable WordBits-2 bit range.
func ImmediateSlot(v Word) Slot {
	return Slot{TagInteger(v & (^Word(0) >> tagBits))}
}

// ReferenceSlot builds a reference slot for the object at addr.
func ReferenceSlot(addr Addr) Slot {
	return Slot{Word(uintptr(unsafe.Pointer(addr)))}
}

// DecodeSlot wraps a raw slot Word as a Slot.
func DecodeSlot(w Word) Slot {
	return Slot{w}
}

// IsImmediate reports whether the slot holds an immediate integer.
func (s Slot) IsImmediate() bool {
	return IsInteger(s.word)
}

// IsReference reports whether the slot holds a reference.
func (s Slot) IsReference() bool {
	return IsReference(s.word)
}

// Value returns the immediate integer held by the slot.
// Panics if the slot is not an immediate.
func (s Slot) Value() Word {
	if !s.IsImmediate() {
		panic("Slot.Value: not an immediate")
	}
	return UntagInteger(s.word)
}

// Addr returns the referent address held by the slot.
// Panics if the slot is not a reference.
func (s Slot) Addr() Addr {
	if !s.IsReference() {
		panic("Slot.Addr: not a reference")
	}
	return Addr(unsafe.Pointer(uintptr(s.word)))
}

// Word returns the raw tagged encoding of the slot.
func (s Slot) Word() Word {
	return s.word
}
