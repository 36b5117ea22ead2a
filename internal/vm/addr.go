package vm

import (
	"unsafe"

	"github.com/chazu/ember/internal/value"
)

// uintptrOf gives pointers into the value stack a total order, which Go's
// pointer type itself doesn't expose (only equality, not <). This is the
// one place the VM reaches for unsafe, standing in for the raw address
// comparisons the open-upvalue list relies on to stay sorted by
// decreasing stack address.
func uintptrOf(p *value.Value) uintptr {
	return uintptr(unsafe.Pointer(p))
}
