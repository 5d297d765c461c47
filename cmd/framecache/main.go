// Package main provides the CLI entry point for framecache: a small tool
// to run blocks through the decode cache and to inspect video blocks.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"

	"github.com/annolab/framecache"
	"github.com/annolab/framecache/internal/avc"
	"github.com/annolab/framecache/internal/imageops"
	"github.com/annolab/framecache/internal/logging"
	"github.com/annolab/framecache/internal/reporter"
	"github.com/annolab/framecache/internal/util"
)

const (
	appName    = "framecache"
	appVersion = "0.3.0"
)

func main() {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Decode frame-chunk blocks through a bounded cache",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newProbeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// decodeArgs holds the parsed arguments for the decode command.
type decodeArgs struct {
	input     string
	chunkSize int
	capacity  int
	threeD    bool
	verbose   bool
}

func newDecodeCmd() *cobra.Command {
	args := decodeArgs{}
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a zip archive of images chunk by chunk",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDecode(args)
		},
	}
	cmd.Flags().StringVarP(&args.input, "input", "i", "", "input archive (zip of PNG/JPEG images)")
	cmd.Flags().IntVar(&args.chunkSize, "chunk-size", defaultChunkSize, "frames per chunk")
	cmd.Flags().IntVar(&args.capacity, "capacity", 0, "resident chunks (0 = derive from available memory)")
	cmd.Flags().BoolVar(&args.threeD, "3d", false, "treat entries as opaque 3D blobs")
	cmd.Flags().BoolVarP(&args.verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// defaultChunkSize mirrors the library default for the flag help.
const defaultChunkSize = 36

// estimatedFrameBytes sizes the memory-derived cache capacity: one full-HD
// RGBA frame.
const estimatedFrameBytes = 1920 * 1080 * imageops.BytesPerPixel

func runDecode(args decodeArgs) error {
	block, err := os.ReadFile(args.input)
	if err != nil {
		return err
	}
	entries, err := listEntries(block)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: archive is empty", args.input)
	}
	if args.chunkSize < 1 {
		return fmt.Errorf("chunk size must be positive")
	}

	capacity := args.capacity
	if capacity < 1 {
		chunkBytes := uint64(args.chunkSize) * estimatedFrameBytes
		capacity = util.MaxChunksForMemory(chunkBytes, 0.25)
	}

	dimension := framecache.Dimension2D
	if args.threeD {
		dimension = framecache.Dimension3D
	}

	opts := []framecache.Option{
		framecache.WithBlockType(framecache.BlockArchive),
		framecache.WithChunkSize(args.chunkSize),
		framecache.WithCapacity(capacity),
		framecache.WithDimension(dimension),
	}
	if args.verbose {
		opts = append(opts, framecache.WithLogger(logging.Setup(true)))
	}
	dec, err := framecache.New(opts...)
	if err != nil {
		return err
	}
	defer dec.Close()

	chunks := (len(entries) + args.chunkSize - 1) / args.chunkSize
	rep := reporter.NewTerminalReporter()
	rep.BlockStarted(reporter.BlockInfo{
		Input:       args.input,
		BlockType:   framecache.BlockArchive.String(),
		Entries:     len(entries),
		Chunks:      chunks,
		ChunkSize:   args.chunkSize,
		Capacity:    capacity,
		BlockBytes:  uint64(len(block)),
		TotalFrames: len(entries),
	})

	start := time.Now()
	var pixelBytes uint64
	var decodedFrames, rejected int

	for c := 0; c < chunks; c++ {
		base := c * args.chunkSize
		count := min(args.chunkSize, len(entries)-base)
		sub, err := subArchive(block, entries[base:base+count])
		if err != nil {
			return err
		}
		frames := make([]int, count)
		for i := range frames {
			frames[i] = base + i
		}

		rep.ChunkStarted(c, count)
		done := make(chan error, 1)
		err = dec.RequestDecode(sub, frames,
			func(frameNumber int, f framecache.Frame) {
				if bmp, ok := f.(*framecache.Bitmap); ok {
					pixelBytes += uint64(len(bmp.Pix))
				}
				decodedFrames++
				rep.FrameDecoded(frameNumber)
			},
			func() { done <- nil },
			func(err error) { done <- err },
		)
		if err != nil {
			return err
		}
		if err := <-done; err != nil {
			if framecache.IsOutdated(err) {
				rejected++
				continue
			}
			rep.Error(err.Error())
			return err
		}
		rep.ChunkComplete(c)
	}

	rep.DecodeComplete(reporter.DecodeSummary{
		Frames:       decodedFrames,
		Chunks:       chunks,
		CachedChunks: dec.CachedChunks(false),
		Rejected:     rejected,
		Elapsed:      time.Since(start),
		PixelBytes:   pixelBytes,
	})
	return nil
}

// listEntries returns the archive's file names in decode order.
func listEntries(block []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(block), int64(len(block)))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}

// subArchive repacks the named entries of block into a standalone archive
// so each chunk decodes from its own block.
func subArchive(block []byte, names []string) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(block), int64(len(block)))
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range r.File {
		if !wanted[f.Name] {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		out, err := w.Create(f.Name)
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		if _, err := io.Copy(out, rc); err != nil {
			_ = rc.Close()
			return nil, err
		}
		_ = rc.Close()
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newProbeCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Summarize the parameter sets and access units of a video block",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runProbe(input)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input H.264 elementary stream")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runProbe(input string) error {
	block, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	stream, err := avc.Split(block)
	if err != nil {
		return err
	}

	counts := make(map[byte]int)
	for _, u := range stream.Units {
		counts[u.Type]++
	}
	types := make([]int, 0, len(counts))
	for t := range counts {
		types = append(types, int(t))
	}
	sort.Ints(types)

	fmt.Printf("%s: %s\n", input, util.FormatBytes(uint64(len(block))))
	fmt.Printf("  SPS: %d bytes at %d\n", stream.SPS.Length, stream.SPS.Offset)
	fmt.Printf("  PPS: %d bytes at %d\n", stream.PPS.Length, stream.PPS.Offset)
	fmt.Printf("  access units: %d\n", len(stream.AccessUnits()))
	for _, t := range types {
		fmt.Printf("  nal type %2d: %d\n", t, counts[byte(t)])
	}
	return nil
}
