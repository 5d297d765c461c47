package chunk

import (
	"sort"

	"github.com/annolab/framecache/internal/frame"
)

// Cache is a bounded map from chunk number to decoded frame set. Entries
// are evicted strictly by admission order: decoded chunks are written once
// and read many times, so admission order is the recency signal and reads
// never reorder.
type Cache struct {
	capacity int
	chunks   map[int]*Decoded
	stack    []int // admission order, newest last
}

// NewCache creates a cache holding at most max(1, limit) chunks.
func NewCache(limit int) *Cache {
	if limit < 1 {
		limit = 1
	}
	return &Cache{
		capacity: limit,
		chunks:   make(map[int]*Decoded, limit),
	}
}

// Capacity returns the maximum number of resident chunks.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Len returns the number of resident chunks.
func (c *Cache) Len() int {
	return len(c.chunks)
}

// Has reports whether the chunk is resident.
func (c *Cache) Has(chunkNumber int) bool {
	_, ok := c.chunks[chunkNumber]
	return ok
}

// Get returns one frame of a resident chunk.
func (c *Cache) Get(chunkNumber, frameNumber int) (frame.Frame, bool) {
	d, ok := c.chunks[chunkNumber]
	if !ok {
		return nil, false
	}
	return d.Get(frameNumber)
}

// Admit inserts a complete frame set and marks it most recent. Admitting a
// chunk that is already resident releases the previous entry first. The
// cache never exceeds its capacity: older chunks are evicted as needed.
func (c *Cache) Admit(chunkNumber int, d *Decoded) {
	if old, ok := c.chunks[chunkNumber]; ok {
		old.Release()
		c.dropFromStack(chunkNumber)
		delete(c.chunks, chunkNumber)
	}
	c.chunks[chunkNumber] = d
	c.stack = append(c.stack, chunkNumber)
	c.EvictDownTo(0)
}

// EvictDownTo pops the oldest chunks until at least targetFreeSlots slots
// are free, releasing every frame of each evicted chunk.
func (c *Cache) EvictDownTo(targetFreeSlots int) {
	if targetFreeSlots > c.capacity {
		targetFreeSlots = c.capacity
	}
	limit := c.capacity - targetFreeSlots
	for len(c.chunks) > limit && len(c.stack) > 0 {
		bottom := c.stack[0]
		c.stack = c.stack[1:]
		if d, ok := c.chunks[bottom]; ok {
			d.Release()
			delete(c.chunks, bottom)
		}
	}
}

// Clear evicts everything.
func (c *Cache) Clear() {
	for _, d := range c.chunks {
		d.Release()
	}
	c.chunks = make(map[int]*Decoded)
	c.stack = c.stack[:0]
}

// Keys returns the resident chunk numbers in ascending order.
func (c *Cache) Keys() []int {
	keys := make([]int, 0, len(c.chunks))
	for n := range c.chunks {
		keys = append(keys, n)
	}
	sort.Ints(keys)
	return keys
}

func (c *Cache) dropFromStack(chunkNumber int) {
	for i, n := range c.stack {
		if n == chunkNumber {
			c.stack = append(c.stack[:i], c.stack[i+1:]...)
			return
		}
	}
}
