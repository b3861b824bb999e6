package objfmt

import "unsafe"

// Vector object layout:
//
//	word 0: wrapper pointer (the traceable-vector wrapper identity)
//	word 1: tagged length (immediate integer)
//	word 2..2+n: slots, each an immediate integer or a reference
//
// These accessors are raw views onto externally owned memory. They do not
// validate the header; callers that need validation use CheckObject.

// HeaderWord returns the first Word at addr, normally a wrapper identity.
func HeaderWord(addr Addr) Word {
	return *(*Word)(unsafe.Pointer(addr))
}

// IsVector reports whether the object at addr carries the registry's
// traceable-vector wrapper.
func (r *Registry) IsVector(addr Addr) bool {
	return HeaderWord(addr) == r.VectorWrapper()
}

// VectorLen returns the slot count of the vector at addr.
func VectorLen(addr Addr) int {
	return int(UntagInteger(wordAt(addr, 1)))
}

// VectorSlot returns the raw Word in slot i of the vector at addr.
func VectorSlot(addr Addr, i int) Word {
	return wordAt(addr, 2+uintptr(i))
}

// SetVectorSlot stores a raw Word into slot i of the vector at addr.
func SetVectorSlot(addr Addr, i int, w Word) {
	*wordPtr(addr, 2+uintptr(i)) = w
}

func wordAt(addr Addr, i uintptr) Word {
	return *wordPtr(addr, i)
}

func wordPtr(addr Addr, i uintptr) *Word {
	return (*Word)(unsafe.Add(unsafe.Pointer(addr), i*WordBytes))
}
