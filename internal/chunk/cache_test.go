package chunk

import (
	"reflect"
	"testing"

	"github.com/annolab/framecache/internal/frame"
)

// decodedChunk builds a frame set with one counting bitmap per frame number.
func decodedChunk(releases *int, frameNumbers ...int) *Decoded {
	d := NewDecoded()
	for _, n := range frameNumbers {
		d.Put(n, frame.NewBitmap(make([]byte, 4), 1, 1, func() { *releases++ }))
	}
	return d
}

func TestCacheCapacityClamp(t *testing.T) {
	tests := []struct {
		limit    int
		expected int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{7, 7},
	}

	for _, tt := range tests {
		if got := NewCache(tt.limit).Capacity(); got != tt.expected {
			t.Errorf("NewCache(%d).Capacity() = %d, want %d", tt.limit, got, tt.expected)
		}
	}
}

func TestAdmitAndGet(t *testing.T) {
	releases := 0
	c := NewCache(2)
	c.Admit(3, decodedChunk(&releases, 30, 31))

	if !c.Has(3) {
		t.Error("chunk 3 should be resident")
	}
	if c.Has(4) {
		t.Error("chunk 4 should not be resident")
	}
	if _, ok := c.Get(3, 30); !ok {
		t.Error("frame 30 should be cached")
	}
	if _, ok := c.Get(3, 99); ok {
		t.Error("frame 99 should not be cached")
	}
	if _, ok := c.Get(8, 80); ok {
		t.Error("absent chunk should return no frame")
	}
}

func TestEvictionByAdmissionOrder(t *testing.T) {
	releases := 0
	c := NewCache(2)
	c.Admit(0, decodedChunk(&releases, 0, 1))
	c.Admit(1, decodedChunk(&releases, 10, 11))

	// Reads must not reorder: touch chunk 0, then admit a third chunk.
	if _, ok := c.Get(0, 0); !ok {
		t.Fatal("frame 0 should be cached")
	}
	c.Admit(2, decodedChunk(&releases, 20, 21))

	if c.Has(0) {
		t.Error("chunk 0 should have been evicted")
	}
	if !c.Has(1) || !c.Has(2) {
		t.Error("chunks 1 and 2 should be resident")
	}
	if releases != 2 {
		t.Errorf("releases = %d, want 2 (both frames of chunk 0)", releases)
	}
	if got, want := c.Keys(), []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestCapacityOneEvictsBeforeAdmission(t *testing.T) {
	releases := 0
	c := NewCache(1)
	c.Admit(0, decodedChunk(&releases, 0))
	c.Admit(1, decodedChunk(&releases, 10))

	if c.Has(0) {
		t.Error("chunk 0 should have been evicted")
	}
	if !c.Has(1) {
		t.Error("chunk 1 should be resident")
	}
	if releases != 1 {
		t.Errorf("releases = %d, want 1", releases)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestEvictDownTo(t *testing.T) {
	releases := 0
	c := NewCache(3)
	c.Admit(0, decodedChunk(&releases, 0))
	c.Admit(1, decodedChunk(&releases, 10))
	c.Admit(2, decodedChunk(&releases, 20))

	c.EvictDownTo(1)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Has(0) {
		t.Error("oldest chunk should go first")
	}

	// Asking for more free slots than the capacity clears everything.
	c.EvictDownTo(10)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if releases != 3 {
		t.Errorf("releases = %d, want 3", releases)
	}
}

func TestReadmitReplaces(t *testing.T) {
	releases := 0
	c := NewCache(2)
	c.Admit(0, decodedChunk(&releases, 0))
	c.Admit(1, decodedChunk(&releases, 10))
	c.Admit(0, decodedChunk(&releases, 0, 1))

	if releases != 1 {
		t.Errorf("releases = %d, want 1 (old chunk 0)", releases)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	// Chunk 0 is now the most recent admission; chunk 1 is the candidate.
	c.Admit(2, decodedChunk(&releases, 20))
	if c.Has(1) {
		t.Error("chunk 1 should have been evicted")
	}
	if !c.Has(0) || !c.Has(2) {
		t.Error("chunks 0 and 2 should be resident")
	}
}

func TestClearReleasesAll(t *testing.T) {
	releases := 0
	c := NewCache(4)
	c.Admit(0, decodedChunk(&releases, 0, 1))
	c.Admit(1, decodedChunk(&releases, 10, 11))

	c.Clear()
	if releases != 4 {
		t.Errorf("releases = %d, want 4", releases)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if len(c.Keys()) != 0 {
		t.Errorf("Keys() = %v, want empty", c.Keys())
	}
}

func TestDecodedRelease(t *testing.T) {
	releases := 0
	d := decodedChunk(&releases, 1, 2, 3)
	d.Put(4, frame.Blob{Data: []byte{1}})

	if d.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", d.Len())
	}
	d.Release()
	if releases != 3 {
		t.Errorf("releases = %d, want 3 (blobs need no release)", releases)
	}
}
