package reporter

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/annolab/framecache/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	progress *progressbar.ProgressBar
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	red      *color.Color
	magenta  *color.Color
	bold     *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter() *TerminalReporter {
	return &TerminalReporter{
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
	}
}

// printLabel prints a bold label with fixed width padding followed by a value.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) BlockStarted(info BlockInfo) {
	fmt.Println()
	_, _ = r.cyan.Println("BLOCK")
	r.printLabel(10, "Input:", info.Input)
	r.printLabel(10, "Type:", info.BlockType)
	r.printLabel(10, "Size:", util.FormatBytes(info.BlockBytes))
	r.printLabel(10, "Frames:", fmt.Sprintf("%d (%d chunks of %d)", info.TotalFrames, info.Chunks, info.ChunkSize))
	r.printLabel(10, "Cache:", fmt.Sprintf("%d chunks", info.Capacity))
	if info.RenderSize != "" {
		r.printLabel(10, "Render:", info.RenderSize)
	}

	fmt.Println()
	_, _ = r.cyan.Println("DECODE")
	r.mu.Lock()
	r.progress = progressbar.NewOptions(info.TotalFrames,
		progressbar.OptionSetDescription("  decoding"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	r.mu.Unlock()
}

func (r *TerminalReporter) ChunkStarted(chunkNumber, frames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress == nil {
		fmt.Printf("  %s chunk %d (%d frames)\n", r.magenta.Sprint("›"), chunkNumber, frames)
	}
}

func (r *TerminalReporter) FrameDecoded(int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Add(1)
	}
}

func (r *TerminalReporter) ChunkComplete(int) {}

func (r *TerminalReporter) DecodeComplete(summary DecodeSummary) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	cached := make([]string, len(summary.CachedChunks))
	for i, c := range summary.CachedChunks {
		cached[i] = strconv.Itoa(c)
	}

	fmt.Println()
	_, _ = r.cyan.Println("RESULT")
	r.printLabel(10, "Frames:", r.green.Sprintf("%d decoded", summary.Frames))
	r.printLabel(10, "Chunks:", fmt.Sprintf("%d decoded, %v resident", summary.Chunks, cached))
	if summary.Rejected > 0 {
		r.printLabel(10, "Rejected:", r.yellow.Sprintf("%d", summary.Rejected))
	}
	r.printLabel(10, "Pixels:", util.FormatBytes(summary.PixelBytes))
	r.printLabel(10, "Elapsed:", summary.Elapsed.Round(time.Millisecond).String())
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Printf("  %s %s\n", r.yellow.Sprint("!"), message)
}

func (r *TerminalReporter) Error(message string) {
	fmt.Printf("  %s %s\n", r.red.Sprint("✗"), message)
}
