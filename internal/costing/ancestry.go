package costing

import "slices"

// Ancestry tracks the chain of products currently being expanded.
//
// A BOM may include another product, which may include another, and so on.
// If a product reappears while it is still being expanded, the explosion
// would never terminate:
//
//	Table → Frame → Leg → Frame  ← CYCLE DETECTED
//
// Siblings are not ancestors: the same sub-assembly used twice on different
// lines of one BOM is pushed and popped once per use and is not a cycle.
//
// Ancestry is used by one explosion at a time and is not safe for
// concurrent use.
type Ancestry struct {
	chain []string
	index map[string]int
}

// NewAncestry creates an empty ancestry.
func NewAncestry() *Ancestry {
	return &Ancestry{index: make(map[string]int)}
}

// Contains reports whether productID is currently being expanded.
func (a *Ancestry) Contains(productID string) bool {
	_, ok := a.index[productID]
	return ok
}

// Push marks productID as being expanded.
// Callers must check Contains first.
func (a *Ancestry) Push(productID string) {
	a.index[productID] = len(a.chain)
	a.chain = append(a.chain, productID)
}

// Pop ends the expansion of the innermost product.
func (a *Ancestry) Pop() {
	if len(a.chain) == 0 {
		return
	}
	last := a.chain[len(a.chain)-1]
	a.chain = a.chain[:len(a.chain)-1]
	delete(a.index, last)
}

// Depth returns the number of products currently being expanded.
func (a *Ancestry) Depth() int {
	return len(a.chain)
}

// CycleTo returns the closed loop that re-entering productID would form,
// starting and ending at productID. Returns nil if productID is not an
// ancestor.
func (a *Ancestry) CycleTo(productID string) []string {
	start, ok := a.index[productID]
	if !ok {
		return nil
	}
	loop := slices.Clone(a.chain[start:])
	return append(loop, productID)
}
