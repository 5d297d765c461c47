// Package avc splits an H.264 Annex-B elementary stream into the parameter
// sets and access units a decode worker consumes. It does not interpret
// the stream beyond locating NAL unit boundaries and reading unit types.
package avc

import (
	"github.com/pkg/errors"
)

// NAL unit types from ISO/IEC 14496-10 table 7-1.
const (
	NALSliceNonIDR byte = 1
	NALSliceIDR    byte = 5
	NALSEI         byte = 6
	NALSPS         byte = 7
	NALPPS         byte = 8
	NALAUD         byte = 9
)

// Sentinel errors for malformed streams.
var (
	ErrNoStartCode     = errors.New("no start code in stream")
	ErrNoParameterSets = errors.New("stream carries no SPS/PPS")
)

// Unit addresses one NAL unit within the original block.
type Unit struct {
	Offset int
	Length int
	Type   byte
}

// Stream is the decoded layout of an elementary stream: the first SPS and
// PPS, plus every remaining NAL unit in stream order.
type Stream struct {
	SPS   Unit
	PPS   Unit
	Units []Unit
}

// AccessUnits returns the units that decode to frames (VCL slices).
func (s *Stream) AccessUnits() []Unit {
	var out []Unit
	for _, u := range s.Units {
		if u.Type == NALSliceNonIDR || u.Type == NALSliceIDR {
			out = append(out, u)
		}
	}
	return out
}

// Split scans block for 3- and 4-byte start codes and classifies the NAL
// units between them. The first SPS and PPS become the initialization
// payloads; everything else is returned in Units.
func Split(block []byte) (*Stream, error) {
	units := scan(block)
	if len(units) == 0 {
		return nil, errors.Wrapf(ErrNoStartCode, "%d byte block", len(block))
	}
	s := &Stream{SPS: Unit{Offset: -1}, PPS: Unit{Offset: -1}}
	for _, u := range units {
		switch u.Type {
		case NALSPS:
			if s.SPS.Offset < 0 {
				s.SPS = u
				continue
			}
		case NALPPS:
			if s.PPS.Offset < 0 {
				s.PPS = u
				continue
			}
		}
		s.Units = append(s.Units, u)
	}
	if s.SPS.Offset < 0 || s.PPS.Offset < 0 {
		return nil, errors.Wrapf(ErrNoParameterSets, "%d units", len(units))
	}
	return s, nil
}

// scan returns the NAL units between start codes. A unit runs from the
// byte after its start code to the byte before the next one; the zero_byte
// of a following 4-byte start code belongs to that code, not the unit.
func scan(block []byte) []Unit {
	var units []Unit
	n := len(block)
	start := -1
	i := 0
	for i+3 <= n {
		if block[i] == 0 && block[i+1] == 0 && block[i+2] == 1 {
			if start >= 0 {
				end := i
				if end > start && block[end-1] == 0 {
					end--
				}
				if end > start {
					units = append(units, unitAt(block, start, end))
				}
			}
			start = i + 3
			i = start
			continue
		}
		i++
	}
	if start >= 0 && start < n {
		units = append(units, unitAt(block, start, n))
	}
	return units
}

func unitAt(block []byte, start, end int) Unit {
	return Unit{Offset: start, Length: end - start, Type: block[start] & 0x1f}
}
