package worker

// StartArchive submits one unpack job covering the request's n frames to a
// retained archive worker and returns its event stream. The worker emits
// entries in arbitrary order; the event index positions each frame within
// the request.
func StartArchive(w ArchiveWorker, block []byte, n int, dim Dimension) <-chan ArchiveEvent {
	w.Submit(Job{
		Block:       block,
		Start:       0,
		End:         n - 1,
		Dimension:   dim,
		Dimension2D: Dimension2D,
	})
	return w.Events()
}
