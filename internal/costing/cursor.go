package costing

// LineCursor assigns sequential line numbers to exploded leaf lines.
//
// The cursor is shared by every level of one explosion, so a sub-product's
// lines are numbered in place between its parent's lines. Product lines never
// advance it: they contribute only through their expansion.
type LineCursor struct {
	next int
}

// NewLineCursor creates a cursor whose first line is start.
func NewLineCursor(start int) *LineCursor {
	return &LineCursor{next: start}
}

// Next returns the current line number and advances the cursor.
func (c *LineCursor) Next() int {
	n := c.next
	c.next++
	return n
}

// Peek returns the line number the next leaf will receive.
func (c *LineCursor) Peek() int {
	return c.next
}
