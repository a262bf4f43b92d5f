package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow when out is a terminal
func (w Warning) Display(out io.Writer) {
	w.render(out, UseColor(out))
}

func (w Warning) render(out io.Writer, colored bool) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}

		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, paint(colored, color.FgYellow, b.String()))
}

// WarnLoneCR builds the warning shown when normalized files still contain
// carriage returns that were not part of a CR+LF or LF+CR pair.
func WarnLoneCR(files []string, skipUnchanged bool) Warning {
	w := Warning{
		Title:   "Carriage returns left in place",
		Message: "These files contain CR bytes outside CR+LF/LF+CR pairs, which are not converted.",
		Files:   files,
	}
	if !skipUnchanged {
		w.Suggestion = "Files whose bytes did not change were still rewritten; pass --skip-unchanged to leave them alone."
	}
	return w
}
