package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is the canonical CBOR encoding mode, so that equal heaps
// always serialize to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Heap to canonical CBOR bytes.
func Marshal(h *Heap) ([]byte, error) {
	return cborEncMode.Marshal(h)
}

// Unmarshal deserializes a Heap from CBOR bytes.
func Unmarshal(data []byte) (*Heap, error) {
	var h Heap
	if err := cbor.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal heap: %w", err)
	}
	return &h, nil
}
