// Package request models decode requests and the single-slot supersession
// state machine that arbitrates between them.
package request

import (
	"fmt"

	ferrors "github.com/annolab/framecache/internal/errors"
	"github.com/annolab/framecache/internal/frame"
)

// OnDecode is invoked once per frame as it completes.
type OnDecode func(frameNumber int, f frame.Frame)

// OnDecodeAll is invoked once after the last frame of a successful session.
type OnDecodeAll func()

// OnReject is invoked once if the request is superseded or its session
// fails. Exclusive with OnDecodeAll.
type OnReject func(err error)

// Request describes one block waiting to be decoded: the frames it covers,
// the raw bytes, and the callbacks its results go to. A request receives
// exactly one terminal callback over its lifetime.
type Request struct {
	Frames []int // global frame numbers, strictly ascending
	Chunk  int   // chunk number of Frames[0]
	Block  []byte

	OnDecode    OnDecode
	OnDecodeAll OnDecodeAll
	OnReject    OnReject

	done bool
}

// Reject marks the request terminal and fires OnReject. It is a no-op if a
// terminal callback already fired.
func (r *Request) Reject(err error) {
	if cb := r.TakeReject(); cb != nil {
		cb(err)
	}
}

// TakeFinish marks the request terminal and returns OnDecodeAll to invoke,
// or nil if a terminal callback already fired. Callers that hold a lock
// take the callback under it and invoke the result outside.
func (r *Request) TakeFinish() OnDecodeAll {
	if r.done {
		return nil
	}
	r.done = true
	return r.OnDecodeAll
}

// TakeReject is the rejection counterpart of TakeFinish.
func (r *Request) TakeReject() OnReject {
	if r.done {
		return nil
	}
	r.done = true
	return r.OnReject
}

// ValidateFrames checks that frames is non-empty, non-negative and strictly
// ascending.
func ValidateFrames(frames []int) error {
	if len(frames) == 0 {
		return ferrors.NewValidation("frame list is empty")
	}
	if frames[0] < 0 {
		return ferrors.NewValidation(fmt.Sprintf("frame number %d is negative", frames[0]))
	}
	for i := 1; i < len(frames); i++ {
		if frames[i] <= frames[i-1] {
			return ferrors.NewValidation(fmt.Sprintf(
				"frame numbers must be strictly ascending: %d follows %d", frames[i], frames[i-1]))
		}
	}
	return nil
}

// SameFrames reports whether two frame lists are identical.
func SameFrames(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
