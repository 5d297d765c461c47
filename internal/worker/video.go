package worker

import (
	"github.com/annolab/framecache/internal/avc"
)

// VideoSession owns one video worker for the duration of a decode session.
type VideoSession struct {
	worker VideoWorker
}

// StartVideo extracts the parameter sets and access units from block and
// streams them to a fresh worker from factory: one init message, then one
// payload each for the SPS, the PPS, and every access unit. The returned
// channel carries one event per decoded access unit, in submission order.
func StartVideo(factory VideoFactory, block []byte) (*VideoSession, <-chan VideoEvent, error) {
	stream, err := avc.Split(block)
	if err != nil {
		return nil, nil, err
	}
	w := factory()
	w.Init(InitMessage{RGB: true, ReuseMemory: false})
	w.Submit(Payload{Buf: block, Offset: stream.SPS.Offset, Length: stream.SPS.Length})
	w.Submit(Payload{Buf: block, Offset: stream.PPS.Offset, Length: stream.PPS.Length})
	for _, u := range stream.AccessUnits() {
		w.Submit(Payload{Buf: block, Offset: u.Offset, Length: u.Length})
	}
	return &VideoSession{worker: w}, w.Events(), nil
}

// Terminate destroys the session's worker.
func (s *VideoSession) Terminate() {
	s.worker.Terminate()
}
