package objfmt

import "unsafe"

// CheckObject is the structural consistency gate the collector invokes on
// addresses it already believes are live object headers. It is a debug
// assertion, not a tolerant probe: a nil or misaligned address, or a
// header that is not a registered wrapper identity, is a contract
// violation by the embedding system and panics.
//
// The check is shallow: it validates addr's own header, not the objects
// its slots reference.
func (r *Registry) CheckObject(addr Addr) bool {
	if addr == nil {
		panic("CheckObject: nil address")
	}
	if uintptr(unsafe.Pointer(addr))&(Align-1) != 0 {
		panic("CheckObject: misaligned address")
	}
	hdr := HeaderWord(addr)
	if !r.WrapperCheck(hdr) {
		panic("CheckObject: header is not a registered wrapper")
	}
	return true
}

// CheckObject validates the object at addr against this Format's registry.
func (f *Format) CheckObject(addr Addr) bool {
	return f.reg.CheckObject(addr)
}

// WrapperCheck reports whether w is a structurally valid wrapper identity:
// it must be one of the two registered wrappers, its self field must name
// itself, its class field must be a reference, and its version field must
// carry the format version.
func (r *Registry) WrapperCheck(w Word) bool {
	if !r.KnownWrapper(w) {
		return false
	}
	p := Addr(unsafe.Pointer(uintptr(w)))
	if wordAt(p, wrapperSelf) != w && wordAt(p, wrapperSelf) != r.WrapperOfWrappers() {
		return false
	}
	if !IsReference(wordAt(p, wrapperClass)) {
		return false
	}
	version, _, _, _ := UnpackVersionWord(wordAt(p, wrapperVersion))
	return version == wrapperVersionNumber
}
