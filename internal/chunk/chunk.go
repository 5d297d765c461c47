// Package chunk tracks decoded frame sets and the bounded cache of them.
package chunk

import (
	"github.com/annolab/framecache/internal/frame"
)

// Decoded is the complete frame set of one decoded chunk, keyed by global
// frame number. A Decoded is built up frame by frame during a session and
// only enters the cache once it covers every frame the request declared.
type Decoded struct {
	frames map[int]frame.Frame
}

// NewDecoded creates an empty frame set.
func NewDecoded() *Decoded {
	return &Decoded{frames: make(map[int]frame.Frame)}
}

// Put records a decoded frame.
func (d *Decoded) Put(frameNumber int, f frame.Frame) {
	d.frames[frameNumber] = f
}

// Get returns the frame with the given number, if present.
func (d *Decoded) Get(frameNumber int) (frame.Frame, bool) {
	f, ok := d.frames[frameNumber]
	return f, ok
}

// Len returns the number of frames recorded so far.
func (d *Decoded) Len() int {
	return len(d.frames)
}

// Release closes every frame in the set.
func (d *Decoded) Release() {
	for _, f := range d.frames {
		f.Close()
	}
}
