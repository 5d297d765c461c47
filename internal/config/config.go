// Package config provides configuration types and defaults for the frame
// decoder.
package config

import (
	"github.com/sirupsen/logrus"

	ferrors "github.com/annolab/framecache/internal/errors"
	"github.com/annolab/framecache/internal/worker"
)

// Default constants
const (
	// DefaultChunkSize is the number of frames grouped into one chunk when
	// no chunk mapper is supplied.
	DefaultChunkSize = 36

	// DefaultCacheCapacity is the number of decoded chunks kept resident.
	// Chunks beyond it are evicted oldest-admission-first.
	DefaultCacheCapacity = 5
)

// Config holds all configuration for a frame decoder.
type Config struct {
	// BlockType selects video or archive decoding.
	BlockType worker.BlockType

	// Dimension selects bitmap or blob output for archive entries.
	Dimension worker.Dimension

	// Capacity is the configured cache limit; the effective capacity is
	// max(1, Capacity).
	Capacity int

	// ChunkSize maps frame numbers to chunk numbers when ChunkOf is nil.
	ChunkSize int

	// ChunkOf overrides the frame-to-chunk mapping. It must be total over
	// all frame numbers the client will ever pass.
	ChunkOf func(frameNumber int) int

	// RenderWidth and RenderHeight set the initial target render size for
	// video decodes. Zero means decoded frames keep their reported size.
	RenderWidth  int
	RenderHeight int

	// VideoWorkers builds one video worker per decode session. Required
	// for video blocks; the codec itself lives behind this boundary.
	VideoWorkers worker.VideoFactory

	// ArchiveWorkers builds archive workers. Defaults to the built-in zip
	// worker.
	ArchiveWorkers worker.ArchiveFactory

	// BitmapRelease runs once per bitmap when its native resources are
	// released. It must not call back into the decoder.
	BitmapRelease func()

	// Logger receives structured decode lifecycle logs. Nil discards them.
	Logger *logrus.Logger
}

// NewConfig returns a config with defaults applied.
func NewConfig() *Config {
	return &Config{
		BlockType: worker.BlockArchive,
		Dimension: worker.Dimension2D,
		Capacity:  DefaultCacheCapacity,
		ChunkSize: DefaultChunkSize,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.ChunkOf == nil && c.ChunkSize < 1 {
		return ferrors.NewConfig("chunk size must be positive")
	}
	if c.BlockType == worker.BlockVideo && c.VideoWorkers == nil {
		return ferrors.NewConfig("video decoding requires a video worker factory")
	}
	if c.RenderWidth < 0 || c.RenderHeight < 0 {
		return ferrors.NewConfig("render size must be non-negative")
	}
	return nil
}

// ChunkMapper returns the frame-to-chunk function, defaulting to division
// by ChunkSize.
func (c *Config) ChunkMapper() func(frameNumber int) int {
	if c.ChunkOf != nil {
		return c.ChunkOf
	}
	size := c.ChunkSize
	return func(frameNumber int) int { return frameNumber / size }
}
