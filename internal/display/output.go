package display

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/lfnorm/internal/symbols"
)

// UseColor reports whether out is a terminal that should receive ANSI colors.
// NO_COLOR disables colors regardless.
func UseColor(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(enabled bool, attr color.Attribute, s string) string {
	c := color.New(attr)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

// RelativePath returns path relative to root with forward slashes, or path
// unchanged when it is not below root.
func RelativePath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// PrintCandidates writes one "path:line: Name    text" line per candidate
// followed by a count.
func PrintCandidates(w io.Writer, result *symbols.Result) {
	colored := UseColor(w)
	for _, c := range result.Candidates {
		fmt.Fprintf(w, "%s:%d: %s\t%s\n",
			RelativePath(result.Root, c.Path), c.Line, paint(colored, color.FgCyan, c.Name), c.Text)
	}
	fmt.Fprintf(w, "%d %s in %d %s\n",
		len(result.Candidates), plural(len(result.Candidates), "candidate", "candidates"),
		result.Files, plural(result.Files, "file", "files"))
}
