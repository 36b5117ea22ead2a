package vm

import "github.com/chazu/ember/internal/value"

// captureUpvalue returns the open upvalue for slot, reusing one if the
// open list already has it (so multiple closures capturing the same
// local share one Upvalue), inserting a new one in the list's
// decreasing-address order otherwise.
func (vm *VM) captureUpvalue(slot *value.Value) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues

	for cur != nil && addrOf(cur.Location) > addrOf(slot) {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Location == slot {
		return cur
	}

	created := vm.newUpvalue(slot)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose location is at or above
// the cutoff slot, copying its live value onto the heap and redirecting
// Location to point there. The >= boundary (not >) is load-bearing: using
// > would leave the topmost upvalue open on return.
func (vm *VM) closeUpvalues(cutoff *value.Value) {
	for vm.openUpvalues != nil && addrOf(vm.openUpvalues.Location) >= addrOf(cutoff) {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}

// addrOf gives a total order over slot pointers into the value stack,
// standing in for raw pointer comparison.
func addrOf(p *value.Value) uintptr {
	return uintptrOf(p)
}
