// Package worker defines the boundary between the decoder core and the
// codec workers that do the actual decoding: the wire message shapes, the
// event streams, and the per-session handles that drive them.
package worker

// BlockType selects the kind of byte block a decoder consumes.
type BlockType int

const (
	// BlockArchive is a zip archive of compressed still images.
	BlockArchive BlockType = iota
	// BlockVideo is a compressed video elementary stream.
	BlockVideo
)

// String returns a string representation of the block type.
func (t BlockType) String() string {
	switch t {
	case BlockArchive:
		return "archive"
	case BlockVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Dimension selects the decoded representation of archive entries.
type Dimension int

const (
	// Dimension2D decodes archive entries into bitmaps.
	Dimension2D Dimension = iota
	// Dimension3D passes archive entries through as opaque blobs.
	Dimension3D
)

// String returns a string representation of the dimension.
func (d Dimension) String() string {
	if d == Dimension3D {
		return "3d"
	}
	return "2d"
}

// InitMessage configures a video worker before the first payload.
type InitMessage struct {
	RGB         bool
	ReuseMemory bool
}

// Payload addresses one parameter set or access unit within a block.
type Payload struct {
	Buf    []byte
	Offset int
	Length int
}

// Bytes returns the addressed slice of the block.
func (p Payload) Bytes() []byte {
	return p.Buf[p.Offset : p.Offset+p.Length]
}

// VideoEvent is one message from a video worker. Events without pixels and
// without an error (console output, init acknowledgements) are ignored by
// the core.
type VideoEvent struct {
	Pix    []byte // raw decoded RGBA
	Width  int
	Height int
	Log    string
	Err    error
}

// VideoWorker is the capability the core drives to decode video payloads.
// A worker decodes submitted access units in order and emits one event per
// decoded frame. Submit must not block on event delivery. The worker
// closes its event channel when it terminates; after an error event it is
// considered terminated.
type VideoWorker interface {
	// Init must be called once before the first Submit.
	Init(msg InitMessage)
	// Submit feeds one parameter set or access unit to the worker.
	Submit(p Payload)
	// Events returns the worker's output stream.
	Events() <-chan VideoEvent
	// Terminate stops the worker and releases its resources. Safe to call
	// more than once.
	Terminate()
}

// VideoFactory builds one video worker per decode session; video workers
// never survive across chunks.
type VideoFactory func() VideoWorker

// Job describes one archive block to unpack. Start and End are the
// inclusive indices of the entries to unpack, counted over the archive's
// entries in name order; each event's Index is relative to Start.
// Dimension2D carries the wire
// constant the worker compares Dimension against.
type Job struct {
	Block       []byte
	Start       int
	End         int
	Dimension   Dimension
	Dimension2D Dimension
}

// ArchiveEvent is one message from an archive worker. In 2D mode Pix,
// Width and Height carry the decoded image; in 3D mode Blob carries the
// raw entry bytes.
type ArchiveEvent struct {
	Index    int
	Pix      []byte
	Width    int
	Height   int
	Blob     []byte
	FileName string
	Err      error
}

// ArchiveWorker unpacks archive blocks. One worker serves many sessions in
// turn; after an error event it is considered terminated. The worker
// closes its event channel when it terminates.
type ArchiveWorker interface {
	Submit(job Job)
	Events() <-chan ArchiveEvent
	Terminate()
}

// ArchiveFactory builds archive workers.
type ArchiveFactory func() ArchiveWorker
