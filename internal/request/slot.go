package request

import (
	ferrors "github.com/annolab/framecache/internal/errors"
)

// Slot holds at most one queued and one in-flight request. New requests
// supersede whatever occupies the slot they land in; the superseded side is
// notified with an outdated error. The slot itself does no locking; the
// decoder serializes access to it.
type Slot struct {
	queued   *Request
	inFlight *Request
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Queued returns the queued request, if any.
func (s *Slot) Queued() *Request {
	return s.queued
}

// InFlight returns the running request, if any.
func (s *Slot) InFlight() *Request {
	return s.inFlight
}

// Offer runs the supersession protocol for an incoming request. It returns
// the rejection notifications for superseded requests; the caller delivers
// them after releasing its lock.
func (s *Slot) Offer(req *Request) []func() {
	if s.queued != nil {
		if SameFrames(req.Frames, s.queued.Frames) {
			// The client is refreshing callbacks on the same pending
			// request; the block and frame list stay as they are.
			return []func(){s.redirect(s.queued, req)}
		}
		old := s.queued
		s.queued = req
		cb := old.TakeReject()
		return []func(){func() {
			if cb != nil {
				cb(ferrors.NewOutdated())
			}
		}}
	}
	if s.inFlight == nil || !SameFrames(req.Frames, s.inFlight.Frames) {
		s.queued = req
		return nil
	}
	// Same frames as the running session: the session keeps going and its
	// remaining output is delivered to the new callbacks.
	return []func(){s.redirect(s.inFlight, req)}
}

// Promote moves the queued request to in-flight and returns it.
func (s *Slot) Promote() *Request {
	r := s.queued
	s.queued = nil
	s.inFlight = r
	return r
}

// ClearInFlight drops the running request.
func (s *Slot) ClearInFlight() {
	s.inFlight = nil
}

// redirect rejects target's current callbacks and replaces them with req's.
// The target request object itself stays in its slot.
func (s *Slot) redirect(target, req *Request) func() {
	old := target.OnReject
	target.OnDecode = req.OnDecode
	target.OnDecodeAll = req.OnDecodeAll
	target.OnReject = req.OnReject
	return func() {
		if old != nil {
			old(ferrors.NewOutdated())
		}
	}
}
