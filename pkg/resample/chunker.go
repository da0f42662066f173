package resample

// Chunker re-slices an arbitrary stream of samples into fixed-size frames.
// Partial frames are carried over to the next Push, so frame boundaries are
// independent of how the input arrives. Not safe for concurrent use.
type Chunker struct {
	size int
	rem  []int16
}

// NewChunker creates a Chunker emitting frames of the given sample count.
func NewChunker(size int) *Chunker {
	if size <= 0 {
		panic("resample: chunker frame size must be positive")
	}
	return &Chunker{size: size}
}

// Push appends samples to the chunker and returns all complete frames now
// available, in order. Each returned frame is exactly Size samples and owns
// its backing array.
func (c *Chunker) Push(samples []int16) [][]int16 {
	c.rem = append(c.rem, samples...)

	var frames [][]int16
	for len(c.rem) >= c.size {
		frame := make([]int16, c.size)
		copy(frame, c.rem[:c.size])
		frames = append(frames, frame)
		c.rem = c.rem[c.size:]
	}
	// Re-anchor the remainder so the backing array does not pin old frames.
	if len(frames) > 0 && len(c.rem) > 0 {
		rem := make([]int16, len(c.rem))
		copy(rem, c.rem)
		c.rem = rem
	}
	return frames
}

// Flush returns any buffered partial frame zero-padded to a full frame, or
// nil if nothing is buffered. The chunker is empty afterwards.
func (c *Chunker) Flush() []int16 {
	if len(c.rem) == 0 {
		return nil
	}
	frame := make([]int16, c.size)
	copy(frame, c.rem)
	c.rem = c.rem[:0]
	return frame
}

// Size returns the frame size in samples.
func (c *Chunker) Size() int {
	return c.size
}

// Pending returns the number of buffered samples not yet emitted.
func (c *Chunker) Pending() int {
	return len(c.rem)
}
