// Package reporter provides progress reporting for the framecache CLI.
package reporter

import "time"

// BlockInfo describes a block about to be decoded.
type BlockInfo struct {
	Input       string
	BlockType   string
	Entries     int
	Chunks      int
	ChunkSize   int
	Capacity    int
	BlockBytes  uint64
	RenderSize  string
	TotalFrames int
}

// DecodeSummary contains the result of a decode run.
type DecodeSummary struct {
	Frames       int
	Chunks       int
	CachedChunks []int
	Rejected     int
	Elapsed      time.Duration
	PixelBytes   uint64
}

// Reporter defines the interface for progress reporting.
type Reporter interface {
	BlockStarted(info BlockInfo)
	ChunkStarted(chunkNumber, frames int)
	FrameDecoded(frameNumber int)
	ChunkComplete(chunkNumber int)
	DecodeComplete(summary DecodeSummary)
	Warning(message string)
	Error(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) BlockStarted(BlockInfo)      {}
func (NullReporter) ChunkStarted(int, int)       {}
func (NullReporter) FrameDecoded(int)            {}
func (NullReporter) ChunkComplete(int)           {}
func (NullReporter) DecodeComplete(DecodeSummary) {}
func (NullReporter) Warning(string)              {}
func (NullReporter) Error(string)                {}
