package notify

import (
	"sync"

	"passport/internal/passport/models"
)

// ringBuffer is a bounded FIFO of transitions. When full, Enqueue drops the
// oldest entry so the newest state change always gets through.
type ringBuffer struct {
	mu       sync.Mutex
	entries  []models.Transition
	head     int // next write
	tail     int // next read
	count    int
	capacity int
	dropped  int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &ringBuffer{
		entries:  make([]models.Transition, capacity),
		capacity: capacity,
	}
}

// Enqueue reports whether an older entry was dropped to make room.
func (b *ringBuffer) Enqueue(t models.Transition) (dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.entries[b.tail] = models.Transition{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}
	b.entries[b.head] = t
	b.head = (b.head + 1) % b.capacity
	b.count++
	return dropped
}

// DequeueBatch removes up to n entries in arrival order.
func (b *ringBuffer) DequeueBatch(n int) []models.Transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	out := make([]models.Transition, n)
	for i := range n {
		out[i] = b.entries[b.tail]
		b.entries[b.tail] = models.Transition{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *ringBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
