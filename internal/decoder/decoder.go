// Package decoder implements the frame-chunk decode engine. It owns the
// chunk cache and the request slot, serializes decode sessions behind a
// fair semaphore, and fans worker events out to the caller's callbacks.
//
// All decoder state is guarded by one mutex. Decode sessions run on their
// own goroutine. Per-frame, completion and failure callbacks are invoked
// from the session goroutine; the outdated rejection of a superseded
// request is invoked inside the RequestDecode call that superseded it.
// Either way the state mutex is released, so a callback may safely query
// the decoder.
package decoder

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/annolab/framecache/internal/archive"
	"github.com/annolab/framecache/internal/chunk"
	"github.com/annolab/framecache/internal/config"
	ferrors "github.com/annolab/framecache/internal/errors"
	"github.com/annolab/framecache/internal/frame"
	"github.com/annolab/framecache/internal/imageops"
	"github.com/annolab/framecache/internal/logging"
	"github.com/annolab/framecache/internal/request"
	"github.com/annolab/framecache/internal/worker"
)

// Decoder coordinates decode sessions over a bounded cache of decoded
// chunks. At most one session runs at a time; newer requests supersede
// older ones through the request slot.
type Decoder struct {
	mu   sync.Mutex
	gate *semaphore.Weighted // serializes decode sessions, FIFO

	cfg     *config.Config
	chunkOf func(int) int
	cache   *chunk.Cache
	slot    *request.Slot

	renderW int
	renderH int

	archive worker.ArchiveWorker // retained across sessions
	session *worker.VideoSession // worker of the running video session
	closed  bool

	log *logrus.Logger
}

// New builds a decoder from the given config.
func New(cfg *config.Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ArchiveWorkers == nil {
		cfg.ArchiveWorkers = func() worker.ArchiveWorker { return archive.New() }
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Decoder{
		gate:    semaphore.NewWeighted(1),
		cfg:     cfg,
		chunkOf: cfg.ChunkMapper(),
		cache:   chunk.NewCache(cfg.Capacity),
		slot:    request.NewSlot(),
		renderW: cfg.RenderWidth,
		renderH: cfg.RenderHeight,
		log:     log,
	}, nil
}

// IsChunkCached reports whether the chunk is fully decoded and resident.
func (d *Decoder) IsChunkCached(chunkNumber int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.Has(chunkNumber)
}

// Frame returns the cached frame, or nil if its chunk is not resident or
// the resident chunk does not hold that frame number.
func (d *Decoder) Frame(frameNumber int) frame.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.cache.Get(d.chunkOf(frameNumber), frameNumber)
	if !ok {
		return nil
	}
	return f
}

// SetRenderSize sets the target render size for subsequent video decodes.
// It has no effect on archive blocks.
func (d *Decoder) SetRenderSize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderW, d.renderH = width, height
}

// CachedChunks returns the resident chunk numbers in ascending order. With
// includeInProgress set, the chunk of the running session is appended.
func (d *Decoder) CachedChunks(includeInProgress bool) []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := d.cache.Keys()
	if includeInProgress {
		if f := d.slot.InFlight(); f != nil {
			keys = append(keys, f.Chunk)
		}
	}
	return keys
}

// RequestDecode validates and adopts a decode request. An invalid frame
// list is reported synchronously and leaves the decoder untouched; every
// adopted request later receives exactly one terminal callback, either
// OnDecodeAll or OnReject.
func (d *Decoder) RequestDecode(block []byte, frames []int, onDecode request.OnDecode, onDecodeAll request.OnDecodeAll, onReject request.OnReject) error {
	if err := request.ValidateFrames(frames); err != nil {
		return err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ferrors.NewClosed()
	}
	req := &request.Request{
		Frames:      frames,
		Chunk:       d.chunkOf(frames[0]),
		Block:       block,
		OnDecode:    onDecode,
		OnDecodeAll: onDecodeAll,
		OnReject:    onReject,
	}
	rejections := d.slot.Offer(req)
	d.mu.Unlock()

	for _, notify := range rejections {
		notify()
	}
	go d.startDecode()
	return nil
}

// Close terminates the workers and releases every cached frame. Callbacks
// of an in-flight session may never arrive after Close.
func (d *Decoder) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	session := d.session
	arch := d.archive
	d.session = nil
	d.archive = nil
	d.cache.Clear()
	d.mu.Unlock()

	if session != nil {
		session.Terminate()
	}
	if arch != nil {
		arch.Terminate()
	}
}

// startDecode promotes the queued request once the session gate opens. It
// is spawned for every adopted request and is idempotent: goroutines that
// find the queue empty, or find their request already superseded, release
// the gate and leave.
func (d *Decoder) startDecode() {
	d.mu.Lock()
	snap := d.slot.Queued()
	if snap == nil || d.closed {
		d.mu.Unlock()
		return
	}
	snapFrames := snap.Frames
	d.mu.Unlock()

	if err := d.gate.Acquire(context.Background(), 1); err != nil {
		return
	}

	d.mu.Lock()
	q := d.slot.Queued()
	if q == nil || d.closed {
		d.mu.Unlock()
		d.gate.Release(1)
		return
	}
	if !request.SameFrames(q.Frames, snapFrames) {
		// A newer request replaced the one this acquisition was made for.
		cb := snap.TakeReject()
		d.mu.Unlock()
		d.gate.Release(1)
		if cb != nil {
			cb(ferrors.NewOutdated())
		}
		return
	}
	req := d.slot.Promote()
	d.cache.EvictDownTo(1)
	blockType := d.cfg.BlockType
	renderW, renderH := d.renderW, d.renderH
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"chunk":  req.Chunk,
		"frames": len(req.Frames),
		"type":   blockType.String(),
	}).Debug("decode session started")

	if blockType == worker.BlockVideo {
		d.runVideo(req, renderW, renderH)
	} else {
		d.runArchive(req)
	}
}

// runVideo drives one video session: a fresh worker per chunk, one Ready
// event per access unit, monotonic by sample index.
func (d *Decoder) runVideo(req *request.Request, renderW, renderH int) {
	session, events, err := worker.StartVideo(d.cfg.VideoWorkers, req.Block)
	if err != nil {
		d.finishRejected(req, ferrors.NewWorker(err))
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		session.Terminate()
		d.finishRejected(req, ferrors.NewClosed())
		return
	}
	d.session = session
	d.mu.Unlock()

	decoded := chunk.NewDecoded()
	index := 0
	total := len(req.Frames)
	for ev := range events {
		if ev.Err != nil {
			session.Terminate()
			d.clearVideoSession()
			decoded.Release()
			d.finishRejected(req, ferrors.NewWorker(ev.Err))
			return
		}
		if ev.Pix == nil {
			// init acknowledgements and console output
			continue
		}
		if index >= total {
			continue
		}
		bmp := d.renderBitmap(ev.Pix, ev.Width, ev.Height, renderW, renderH)
		frameNumber := req.Frames[index]
		decoded.Put(frameNumber, bmp)
		d.deliver(req, frameNumber, bmp)
		index++
		if index == total {
			session.Terminate()
			d.clearVideoSession()
			d.commit(req, decoded)
			return
		}
	}
	// The worker went away before the chunk completed.
	d.clearVideoSession()
	decoded.Release()
	d.finishRejected(req, ferrors.NewWorker(errors.New("video worker stream ended early")))
}

// runArchive drives one archive session against the retained worker.
// Entries arrive in arbitrary order; the session completes when the frame
// set covers the whole request.
func (d *Decoder) runArchive(req *request.Request) {
	w := d.archiveWorker()
	if w == nil {
		d.finishRejected(req, ferrors.NewClosed())
		return
	}
	events := worker.StartArchive(w, req.Block, len(req.Frames), d.cfg.Dimension)

	decoded := chunk.NewDecoded()
	total := len(req.Frames)
	for ev := range events {
		if ev.Err != nil {
			d.dropArchiveWorker(w)
			decoded.Release()
			d.finishRejected(req, ferrors.NewWorker(ev.Err))
			return
		}
		if ev.Index < 0 || ev.Index >= total {
			continue
		}
		frameNumber := req.Frames[ev.Index]
		var f frame.Frame
		if d.cfg.Dimension == worker.Dimension2D {
			f = frame.NewBitmap(ev.Pix, ev.Width, ev.Height, d.cfg.BitmapRelease)
		} else {
			f = frame.Blob{Data: ev.Blob}
		}
		decoded.Put(frameNumber, f)
		d.deliver(req, frameNumber, f)
		if decoded.Len() == total {
			d.commit(req, decoded)
			return
		}
	}
	// The worker terminated mid-session.
	decoded.Release()
	d.finishRejected(req, ferrors.NewWorker(errors.New("archive worker stream ended early")))
}

// renderBitmap crops a raw decoded buffer to the target render size and
// wraps it. With no render size configured the reported size is kept.
func (d *Decoder) renderBitmap(pix []byte, width, height, renderW, renderH int) *frame.Bitmap {
	outW, outH := imageops.RenderSize(width, height, renderW, renderH)
	if outW > width {
		outW = width
	}
	if outH > height {
		outH = height
	}
	cropped := imageops.Crop(pix, width, height, outW, outH)
	return frame.NewBitmap(cropped, outW, outH, d.cfg.BitmapRelease)
}

// deliver invokes the request's per-frame callback. The callback fields
// are read under the state mutex because a same-chunk supersession may
// swap them mid-session.
func (d *Decoder) deliver(req *request.Request, frameNumber int, f frame.Frame) {
	d.mu.Lock()
	cb := req.OnDecode
	closed := d.closed
	d.mu.Unlock()
	if cb != nil && !closed {
		cb(frameNumber, f)
	}
}

// commit admits the completed chunk, fires the terminal success callback,
// and only then opens the gate for the next session, so OnDecodeAll of one
// chunk happens before any OnDecode of the next.
func (d *Decoder) commit(req *request.Request, decoded *chunk.Decoded) {
	d.mu.Lock()
	if d.closed {
		d.slot.ClearInFlight()
		d.mu.Unlock()
		decoded.Release()
		d.gate.Release(1)
		return
	}
	d.cache.Admit(req.Chunk, decoded)
	d.slot.ClearInFlight()
	cb := req.TakeFinish()
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{"chunk": req.Chunk, "frames": decoded.Len()}).Debug("chunk admitted")

	if cb != nil {
		cb()
	}
	d.gate.Release(1)
}

// finishRejected ends the session without admission and reports err. After
// Close the callback is dropped; the caller was told not to wait.
func (d *Decoder) finishRejected(req *request.Request, err error) {
	d.mu.Lock()
	d.slot.ClearInFlight()
	closed := d.closed
	var cb request.OnReject
	if !closed {
		cb = req.TakeReject()
	}
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{"chunk": req.Chunk}).WithError(err).Debug("decode session failed")

	if cb != nil {
		cb(err)
	}
	d.gate.Release(1)
}

func (d *Decoder) clearVideoSession() {
	d.mu.Lock()
	d.session = nil
	d.mu.Unlock()
}

// archiveWorker returns the retained archive worker, creating it on first
// use or after a failure dropped the previous one.
func (d *Decoder) archiveWorker() worker.ArchiveWorker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.archive == nil {
		d.archive = d.cfg.ArchiveWorkers()
	}
	return d.archive
}

// dropArchiveWorker terminates a failed archive worker and forgets it; the
// next session gets a fresh one.
func (d *Decoder) dropArchiveWorker(w worker.ArchiveWorker) {
	d.mu.Lock()
	if d.archive == w {
		d.archive = nil
	}
	d.mu.Unlock()
	w.Terminate()
}
