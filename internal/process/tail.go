package process

import (
	"github.com/smallnest/ringbuffer"
)

const defaultTailSize = 4 << 10

// Tail keeps the last size bytes written to it. It is attached to the
// subprocess output so failures can be logged with what the process
// printed last, without holding the whole stream in memory.
type Tail struct {
	rb   *ringbuffer.RingBuffer
	size int
}

func NewTail(size int) *Tail {
	if size <= 0 {
		size = defaultTailSize
	}
	return &Tail{
		rb:   ringbuffer.New(size),
		size: size,
	}
}

// Write never fails; older bytes are dropped to make room.
func (t *Tail) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}

	if n >= t.size {
		t.discard(t.rb.Length())
		_, _ = t.rb.Write(p[n-t.size:])
		return n, nil
	}

	if free := t.rb.Free(); free < n {
		t.discard(n - free)
	}
	_, _ = t.rb.Write(p)
	return n, nil
}

func (t *Tail) discard(n int) {
	if n <= 0 {
		return
	}
	_, _ = t.rb.Read(make([]byte, n))
}

func (t *Tail) String() string {
	return string(t.rb.Bytes())
}
