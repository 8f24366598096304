package vulkan

// releaseStack collects destructors for one lifetime tier and runs them in
// reverse creation order.
type releaseStack struct {
	fns []func()
}

func (r *releaseStack) push(fn func()) {
	r.fns = append(r.fns, fn)
}

func (r *releaseStack) len() int {
	return len(r.fns)
}

// release runs every destructor, last pushed first, and empties the stack.
func (r *releaseStack) release() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}
