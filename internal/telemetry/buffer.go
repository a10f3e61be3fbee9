package telemetry

// FixedBuffer is a reusable byte buffer with a hard capacity. Writes past
// the capacity are discarded and the last byte is always kept free as a
// terminator, so at most Cap()-1 bytes are ever stored.
type FixedBuffer struct {
	buf       []byte
	n         int
	truncated bool
}

// NewFixedBuffer allocates a buffer of the given capacity in bytes.
// Capacities below 1 are raised to 1.
func NewFixedBuffer(capacity int) *FixedBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FixedBuffer{buf: make([]byte, capacity)}
}

// Reset clears the contents for reuse.
func (b *FixedBuffer) Reset() {
	clear(b.buf[:b.n])
	b.n = 0
	b.truncated = false
}

// Write appends as much of p as fits. It returns ErrTruncated when part of
// p was dropped.
func (b *FixedBuffer) Write(p []byte) (int, error) {
	room := len(b.buf) - 1 - b.n
	if room < 0 {
		room = 0
	}
	c := copy(b.buf[b.n:b.n+min(room, len(p))], p)
	b.n += c
	if c < len(p) {
		b.truncated = true
		return c, ErrTruncated
	}
	return c, nil
}

// WriteString is Write for strings.
func (b *FixedBuffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *FixedBuffer) Bytes() []byte   { return b.buf[:b.n] }
func (b *FixedBuffer) String() string  { return string(b.buf[:b.n]) }
func (b *FixedBuffer) Len() int        { return b.n }
func (b *FixedBuffer) Cap() int        { return len(b.buf) }
func (b *FixedBuffer) Truncated() bool { return b.truncated }
