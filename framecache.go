// Package framecache provides a bounded decode cache for the frame chunks
// of a video or image-archive source.
//
// A client hands the decoder opaque byte blocks together with the frame
// numbers each block represents. Blocks decode one at a time on a worker;
// decoded frames stream back through callbacks and the completed chunk is
// kept in a bounded cache for synchronous lookup. Newer requests supersede
// older ones that have not finished, so non-linear navigation never queues
// up obsolete work.
//
// Basic usage:
//
//	dec, err := framecache.New(
//	    framecache.WithBlockType(framecache.BlockArchive),
//	    framecache.WithChunkSize(36),
//	    framecache.WithCapacity(5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dec.Close()
//
//	err = dec.RequestDecode(block, frames,
//	    func(frameNumber int, f framecache.Frame) { /* per frame */ },
//	    func() { /* chunk complete */ },
//	    func(err error) {
//	        if framecache.IsOutdated(err) {
//	            return // superseded by a newer request
//	        }
//	        log.Print(err)
//	    },
//	)
package framecache

import (
	"github.com/sirupsen/logrus"

	"github.com/annolab/framecache/internal/config"
	"github.com/annolab/framecache/internal/decoder"
	ferrors "github.com/annolab/framecache/internal/errors"
	"github.com/annolab/framecache/internal/frame"
	"github.com/annolab/framecache/internal/request"
	"github.com/annolab/framecache/internal/worker"
)

// Re-export block and frame kinds.
type BlockType = worker.BlockType

const (
	BlockArchive = worker.BlockArchive
	BlockVideo   = worker.BlockVideo
)

type Dimension = worker.Dimension

const (
	Dimension2D = worker.Dimension2D
	Dimension3D = worker.Dimension3D
)

// Frame is a decoded frame: a *Bitmap raster or an opaque Blob. Frames
// received through OnDecode are borrowed; the cache owns them until their
// chunk is evicted.
type Frame = frame.Frame

// Bitmap is a decoded 2D raster.
type Bitmap = frame.Bitmap

// Blob is an opaque 3D frame payload.
type Blob = frame.Blob

// Callback surface of a decode request.
type (
	OnDecode    = request.OnDecode
	OnDecodeAll = request.OnDecodeAll
	OnReject    = request.OnReject
)

// Worker boundary types, for clients that bind their own codec workers.
type (
	VideoWorker    = worker.VideoWorker
	VideoFactory   = worker.VideoFactory
	ArchiveWorker  = worker.ArchiveWorker
	ArchiveFactory = worker.ArchiveFactory
	InitMessage    = worker.InitMessage
	Payload        = worker.Payload
	VideoEvent     = worker.VideoEvent
	ArchiveEvent   = worker.ArchiveEvent
	Job            = worker.Job
)

// Decoder decodes chunk blocks and serves their frames from a bounded
// cache. All methods are safe for concurrent use.
type Decoder struct {
	inner *decoder.Decoder
}

// Option configures the decoder.
type Option func(*config.Config)

// New creates a decoder with the given options.
func New(opts ...Option) (*Decoder, error) {
	cfg := config.NewConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	inner, err := decoder.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Decoder{inner: inner}, nil
}

// WithBlockType selects video or archive decoding.
func WithBlockType(t BlockType) Option {
	return func(c *config.Config) {
		c.BlockType = t
	}
}

// WithDimension selects bitmap (2D) or blob (3D) output for archive
// entries.
func WithDimension(d Dimension) Option {
	return func(c *config.Config) {
		c.Dimension = d
	}
}

// WithCapacity sets the number of decoded chunks kept resident; the
// effective capacity is at least one.
func WithCapacity(n int) Option {
	return func(c *config.Config) {
		c.Capacity = n
	}
}

// WithChunkSize sets the number of frames per chunk for the default
// frame-to-chunk mapping.
func WithChunkSize(n int) Option {
	return func(c *config.Config) {
		c.ChunkSize = n
	}
}

// WithChunkMapper overrides the frame-to-chunk mapping with a custom total
// function.
func WithChunkMapper(fn func(frameNumber int) int) Option {
	return func(c *config.Config) {
		c.ChunkOf = fn
	}
}

// WithRenderSize sets the initial target render size for video decodes.
func WithRenderSize(width, height int) Option {
	return func(c *config.Config) {
		c.RenderWidth = width
		c.RenderHeight = height
	}
}

// WithVideoWorkers binds the factory that builds one video worker per
// decode session. Required for video blocks.
func WithVideoWorkers(factory VideoFactory) Option {
	return func(c *config.Config) {
		c.VideoWorkers = factory
	}
}

// WithArchiveWorkers overrides the built-in zip archive worker.
func WithArchiveWorkers(factory ArchiveFactory) Option {
	return func(c *config.Config) {
		c.ArchiveWorkers = factory
	}
}

// WithBitmapRelease installs a hook that runs once per bitmap when its
// native resources are released. The hook must not call back into the
// decoder.
func WithBitmapRelease(fn func()) Option {
	return func(c *config.Config) {
		c.BitmapRelease = fn
	}
}

// WithLogger routes decode lifecycle logs to the given logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *config.Config) {
		c.Logger = log
	}
}

// RequestDecode submits a block for decoding. frames lists the global
// frame numbers the block covers, non-empty and strictly ascending; a
// violation is returned synchronously and changes nothing. An adopted
// request receives onDecode once per frame, then exactly one terminal
// callback: onDecodeAll on success or onReject on supersession or worker
// failure.
func (d *Decoder) RequestDecode(block []byte, frames []int, onDecode OnDecode, onDecodeAll OnDecodeAll, onReject OnReject) error {
	return d.inner.RequestDecode(block, frames, onDecode, onDecodeAll, onReject)
}

// Frame returns the cached frame with the given number, or nil if its
// chunk is not resident or the resident chunk does not hold that frame
// number. The returned frame is borrowed from the cache.
func (d *Decoder) Frame(frameNumber int) Frame {
	return d.inner.Frame(frameNumber)
}

// IsChunkCached reports whether the chunk is fully decoded and resident.
func (d *Decoder) IsChunkCached(chunkNumber int) bool {
	return d.inner.IsChunkCached(chunkNumber)
}

// CachedChunks returns the resident chunk numbers in ascending order. With
// includeInProgress set, the chunk currently being decoded is appended.
func (d *Decoder) CachedChunks(includeInProgress bool) []int {
	return d.inner.CachedChunks(includeInProgress)
}

// SetRenderSize changes the target render size for subsequent video
// decodes. Archive decodes are unaffected.
func (d *Decoder) SetRenderSize(width, height int) {
	d.inner.SetRenderSize(width, height)
}

// Close terminates the workers and releases every cached frame. Callbacks
// of an in-flight request may never arrive after Close.
func (d *Decoder) Close() {
	d.inner.Close()
}

// IsOutdated reports whether err signals that a request was superseded by
// a newer one. Clients typically ignore these.
func IsOutdated(err error) bool {
	return ferrors.IsOutdated(err)
}

// IsWorkerError reports whether err comes from a failed decode worker.
func IsWorkerError(err error) bool {
	return ferrors.IsWorker(err)
}

// IsValidationError reports whether err is a synchronous frame-list
// validation error.
func IsValidationError(err error) bool {
	return ferrors.IsValidation(err)
}
