// Package archive provides the built-in worker that unpacks zip blocks of
// still images. Entries are ordered by name; filenames are otherwise not
// interpreted.
package archive

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"sort"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"github.com/klauspost/compress/zip"

	"github.com/annolab/framecache/internal/worker"
)

// Worker unpacks zip blocks on its own goroutine and reports one event per
// requested entry. A single worker serves many sessions in turn.
type Worker struct {
	jobs   chan worker.Job
	events chan worker.ArchiveEvent
	quit   chan struct{}
	stop   sync.Once
}

// New starts an archive worker.
func New() *Worker {
	w := &Worker{
		jobs:   make(chan worker.Job),
		events: make(chan worker.ArchiveEvent),
		quit:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues one unpack job.
func (w *Worker) Submit(job worker.Job) {
	select {
	case w.jobs <- job:
	case <-w.quit:
	}
}

// Events returns the worker's output stream. The channel is closed when
// the worker terminates.
func (w *Worker) Events() <-chan worker.ArchiveEvent {
	return w.events
}

// Terminate stops the worker. Safe to call more than once.
func (w *Worker) Terminate() {
	w.stop.Do(func() { close(w.quit) })
}

func (w *Worker) run() {
	defer close(w.events)
	for {
		select {
		case <-w.quit:
			return
		case job := <-w.jobs:
			if !w.unpack(job) {
				return
			}
		}
	}
}

// unpack processes one job. It returns false when the worker was
// terminated mid-job.
func (w *Worker) unpack(job worker.Job) bool {
	r, err := zip.NewReader(bytes.NewReader(job.Block), int64(len(job.Block)))
	if err != nil {
		return w.fail(fmt.Errorf("open archive: %w", err))
	}
	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	if job.Start < 0 || job.End >= len(files) {
		return w.fail(fmt.Errorf("archive has %d entries, requested [%d, %d]", len(files), job.Start, job.End))
	}
	for i := job.Start; i <= job.End; i++ {
		f := files[i]
		data, err := readEntry(f)
		if err != nil {
			return w.fail(fmt.Errorf("read %s: %w", f.Name, err))
		}
		ev := worker.ArchiveEvent{Index: i - job.Start, FileName: f.Name}
		if job.Dimension == job.Dimension2D {
			pix, width, height, err := decodeRGBA(data)
			if err != nil {
				return w.fail(fmt.Errorf("decode %s: %w", f.Name, err))
			}
			ev.Pix, ev.Width, ev.Height = pix, width, height
		} else {
			ev.Blob = data
		}
		if !w.emit(ev) {
			return false
		}
	}
	return true
}

func (w *Worker) emit(ev worker.ArchiveEvent) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.quit:
		return false
	}
}

func (w *Worker) fail(err error) bool {
	return w.emit(worker.ArchiveEvent{Err: err})
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// decodeRGBA decodes a PNG or JPEG entry into a row-major RGBA8 buffer.
func decodeRGBA(data []byte) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba.Pix, b.Dx(), b.Dy(), nil
}
