package archive

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/annolab/framecache/internal/worker"
)

// buildZip packs the given name->payload entries into an in-memory archive.
func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// pngBytes encodes a solid w x h image.
func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// collect reads n events or fails the test on timeout.
func collect(t *testing.T, events <-chan worker.ArchiveEvent, n int) []worker.ArchiveEvent {
	t.Helper()
	out := make([]worker.ArchiveEvent, 0, n)
	for len(out) < n {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed after %d of %d events", len(out), n)
			}
			out = append(out, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestUnpack2D(t *testing.T) {
	block := buildZip(t, map[string][]byte{
		"000000.png": pngBytes(t, 2, 2, color.RGBA{R: 255, A: 255}),
		"000001.png": pngBytes(t, 2, 2, color.RGBA{G: 255, A: 255}),
		"000002.png": pngBytes(t, 3, 1, color.RGBA{B: 255, A: 255}),
	})

	w := New()
	defer w.Terminate()
	w.Submit(worker.Job{Block: block, Start: 0, End: 2, Dimension: worker.Dimension2D, Dimension2D: worker.Dimension2D})

	events := collect(t, w.Events(), 3)
	for i, ev := range events {
		if ev.Err != nil {
			t.Fatalf("event %d error: %v", i, ev.Err)
		}
		if ev.Index != i {
			t.Errorf("event %d index = %d", i, ev.Index)
		}
		if len(ev.Pix) != ev.Width*ev.Height*4 {
			t.Errorf("event %d pix = %d bytes for %dx%d", i, len(ev.Pix), ev.Width, ev.Height)
		}
	}

	// Entries are ordered by name; the red 2x2 image comes first.
	if events[0].FileName != "000000.png" || events[0].Width != 2 || events[0].Height != 2 {
		t.Errorf("event 0 = %s %dx%d", events[0].FileName, events[0].Width, events[0].Height)
	}
	if events[0].Pix[0] != 255 {
		t.Errorf("event 0 red channel = %d, want 255", events[0].Pix[0])
	}
	if events[2].Width != 3 || events[2].Height != 1 {
		t.Errorf("event 2 = %dx%d, want 3x1", events[2].Width, events[2].Height)
	}
}

func TestUnpackSubrange(t *testing.T) {
	block := buildZip(t, map[string][]byte{
		"a.png": pngBytes(t, 1, 1, color.RGBA{A: 255}),
		"b.png": pngBytes(t, 1, 1, color.RGBA{A: 255}),
		"c.png": pngBytes(t, 1, 1, color.RGBA{A: 255}),
	})

	w := New()
	defer w.Terminate()
	w.Submit(worker.Job{Block: block, Start: 1, End: 2, Dimension: worker.Dimension2D, Dimension2D: worker.Dimension2D})

	events := collect(t, w.Events(), 2)
	if events[0].FileName != "b.png" || events[0].Index != 0 {
		t.Errorf("event 0 = %s index %d, want b.png index 0", events[0].FileName, events[0].Index)
	}
	if events[1].FileName != "c.png" || events[1].Index != 1 {
		t.Errorf("event 1 = %s index %d, want c.png index 1", events[1].FileName, events[1].Index)
	}
}

func TestUnpack3DBlobs(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	block := buildZip(t, map[string][]byte{
		"cloud0.bin": payload,
	})

	w := New()
	defer w.Terminate()
	w.Submit(worker.Job{Block: block, Start: 0, End: 0, Dimension: worker.Dimension3D, Dimension2D: worker.Dimension2D})

	events := collect(t, w.Events(), 1)
	if events[0].Err != nil {
		t.Fatalf("event error: %v", events[0].Err)
	}
	if !bytes.Equal(events[0].Blob, payload) {
		t.Errorf("blob = %v, want %v", events[0].Blob, payload)
	}
	if events[0].Pix != nil {
		t.Error("3D mode must not decode pixels")
	}
}

func TestUnpackErrors(t *testing.T) {
	tests := []struct {
		name  string
		block []byte
		job   func([]byte) worker.Job
	}{
		{
			"corrupt archive",
			[]byte("not a zip"),
			func(b []byte) worker.Job {
				return worker.Job{Block: b, Start: 0, End: 0, Dimension: worker.Dimension2D, Dimension2D: worker.Dimension2D}
			},
		},
		{
			"range beyond entries",
			nil, // filled below
			func(b []byte) worker.Job {
				return worker.Job{Block: b, Start: 0, End: 5, Dimension: worker.Dimension2D, Dimension2D: worker.Dimension2D}
			},
		},
		{
			"entry is not an image",
			nil,
			func(b []byte) worker.Job {
				return worker.Job{Block: b, Start: 0, End: 0, Dimension: worker.Dimension2D, Dimension2D: worker.Dimension2D}
			},
		},
	}
	tests[1].block = buildZip(t, map[string][]byte{"only.png": pngBytes(t, 1, 1, color.RGBA{A: 255})})
	tests[2].block = buildZip(t, map[string][]byte{"garbage.png": []byte("garbage")})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New()
			defer w.Terminate()
			w.Submit(tt.job(tt.block))
			events := collect(t, w.Events(), 1)
			if events[0].Err == nil {
				t.Error("expected an error event")
			}
		})
	}
}

func TestWorkerServesSessionsInTurn(t *testing.T) {
	block := buildZip(t, map[string][]byte{
		"f.png": pngBytes(t, 1, 1, color.RGBA{A: 255}),
	})
	job := worker.Job{Block: block, Start: 0, End: 0, Dimension: worker.Dimension2D, Dimension2D: worker.Dimension2D}

	w := New()
	defer w.Terminate()

	w.Submit(job)
	first := collect(t, w.Events(), 1)
	if first[0].Err != nil {
		t.Fatalf("first session error: %v", first[0].Err)
	}

	w.Submit(job)
	second := collect(t, w.Events(), 1)
	if second[0].Err != nil {
		t.Fatalf("second session error: %v", second[0].Err)
	}
}

func TestTerminateClosesEvents(t *testing.T) {
	w := New()
	w.Terminate()
	w.Terminate() // idempotent

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("expected closed event stream")
		}
	case <-time.After(time.Second):
		t.Error("event stream should close on terminate")
	}
}
