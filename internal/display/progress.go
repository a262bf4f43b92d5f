package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/harrison/lfnorm/internal/normalizer"
)

// ProgressIndicator lists the files a normalization run changed
type ProgressIndicator struct {
	writer     io.Writer
	root       string
	totalFiles int
	current    int
	dryRun     bool
	colored    bool
}

// NewProgressIndicator creates a progress indicator for total changed files under root
func NewProgressIndicator(w io.Writer, root string, total int, dryRun bool) *ProgressIndicator {
	return &ProgressIndicator{
		writer:     w,
		root:       root,
		totalFiles: total,
		dryRun:     dryRun,
		colored:    UseColor(w),
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	if p.dryRun {
		fmt.Fprintf(p.writer, "Files that would be normalized:\n")
		return
	}
	fmt.Fprintf(p.writer, "Normalized files:\n")
}

// Step displays one changed file: [N/Total] path (before -> after bytes)
func (p *ProgressIndicator) Step(change normalizer.FileChange) {
	p.current++
	line := fmt.Sprintf("  [%d/%d] %s (%d -> %d bytes)", p.current, p.totalFiles,
		RelativePath(p.root, change.Path), change.BytesBefore, change.BytesAfter)
	fmt.Fprintln(p.writer, paint(p.colored, color.FgCyan, line))
}

// Complete displays the closing line with a green checkmark
func (p *ProgressIndicator) Complete() {
	verb := "Normalized"
	if p.dryRun {
		verb = "Would normalize"
	}
	fmt.Fprintf(p.writer, "%s %s %d %s\n", paint(p.colored, color.FgGreen, "✓"), verb, p.totalFiles, plural(p.totalFiles, "file", "files"))
}

// PrintChanges writes every change in the report, framed by Start and Complete.
// Nothing is written when the report has no changes.
func PrintChanges(w io.Writer, report *normalizer.Report) {
	if report == nil || len(report.Modified) == 0 {
		return
	}
	p := NewProgressIndicator(w, report.Root, len(report.Modified), report.DryRun)
	p.Start()
	for _, change := range report.Modified {
		p.Step(change)
	}
	p.Complete()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
