package vm

const (
	// DefaultFrameLocals is the number of variable slots that can be stored
	// directly in the frame's fixed storage array, avoiding heap allocation.
	DefaultFrameLocals = 8

	// DefaultFrameStack is the evaluation stack capacity reserved in the
	// frame itself. Deeper stacks grow on the heap up to MaxStackDepth.
	DefaultFrameStack = 16
)

// frame is the private state of one function invocation: its variable
// slots, its evaluation stack and its instruction pointer. Frames never
// reference one another.
type frame struct {
	code         *code
	ip           int
	depth        int
	slots        []int64
	stack        []int64
	slotStorage  [DefaultFrameLocals]int64
	stackStorage [DefaultFrameStack]int64
}

// activate prepares the frame to run c with zeroed slots and an empty stack.
func (f *frame) activate(c *code, depth int) {
	f.code = c
	f.ip = 0
	f.depth = depth
	if c.localCount > DefaultFrameLocals {
		f.slots = make([]int64, c.localCount)
	} else {
		f.slotStorage = [DefaultFrameLocals]int64{}
		f.slots = f.slotStorage[:c.localCount]
	}
	f.stack = f.stackStorage[:0]
}

// push reports false if the stack is already at MaxStackDepth.
func (f *frame) push(v int64) bool {
	if len(f.stack) >= MaxStackDepth {
		return false
	}
	f.stack = append(f.stack, v)
	return true
}

// pop reports false if the stack is empty.
func (f *frame) pop() (int64, bool) {
	n := len(f.stack)
	if n == 0 {
		return 0, false
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, true
}

// popN removes the top n values and returns them in push order, so the
// first element is the deepest.
func (f *frame) popN(n int) ([]int64, bool) {
	if n > len(f.stack) {
		return nil, false
	}
	start := len(f.stack) - n
	values := make([]int64, n)
	copy(values, f.stack[start:])
	f.stack = f.stack[:start]
	return values, true
}

// result returns the value handed back to the caller when the frame's
// stream is exhausted.
func (f *frame) result() int64 {
	if f.code.outSlot < 0 {
		return 0
	}
	return f.slots[f.code.outSlot]
}

func copyInt64s(values []int64) []int64 {
	out := make([]int64, len(values))
	copy(out, values)
	return out
}
