// Package symbols reports C/C++ declarations whose names follow the
// capitalised naming convention, as candidates for a later rename.
// It only reads files.
package symbols

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/harrison/lfnorm/internal/fileutil"
)

// candidatePattern matches a word, one whitespace character (a newline
// included), then a capitalised identifier terminated by ';' or '{'.
var candidatePattern = regexp.MustCompile(`.*\w+\s([A-Z][A-Za-z0-9_]+\w+)[;{]`)

// Candidate is a match that looks like a declaration of a capitalised name.
// Text is the match with runs of whitespace collapsed to one space.
type Candidate struct {
	Path string `yaml:"path"`
	Line int    `yaml:"line"`
	Text string `yaml:"text"`
	Name string `yaml:"name"`
}

// Options configures Find.
type Options struct {
	// Include globs, relative to the root and slash-separated
	Include []string
	// ExcludeDirs are directory names that are not descended into
	ExcludeDirs []string
	// SkipHidden skips directories whose name starts with "."
	SkipHidden bool
	// MaxDepth limits recursion depth (0 = unlimited, 1 = root only)
	MaxDepth int
}

// Result is the outcome of a Find.
type Result struct {
	Root       string      `yaml:"root"`
	Files      int         `yaml:"files"`
	Candidates []Candidate `yaml:"candidates"`
	// Errors holds files or directories that could not be read
	Errors []error `yaml:"-"`
}

// Names returns the distinct candidate names in first-seen order.
func (r *Result) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range r.Candidates {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	return names
}

// Find scans the files under root selected by opts and returns every
// candidate line. Unreadable files are recorded in Result.Errors.
func Find(root string, opts Options) (*Result, error) {
	scan, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
		Include:     opts.Include,
		ExcludeDirs: opts.ExcludeDirs,
		SkipHidden:  opts.SkipHidden,
		MaxDepth:    opts.MaxDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	result := &Result{
		Root:       root,
		Candidates: make([]Candidate, 0),
		Errors:     scan.Errors,
	}

	for _, path := range scan.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to read %s: %w", path, err))
			continue
		}
		result.Files++
		result.Candidates = append(result.Candidates, FindInContent(path, data)...)
	}

	return result, nil
}

// FindInContent returns the candidates in data, attributed to path.
// The whole buffer is matched, so the whitespace before a name may be a line
// break; Line is the 1-based line holding the name. CR+LF counts as one break.
func FindInContent(path string, data []byte) []Candidate {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	var out []Candidate
	for _, m := range candidatePattern.FindAllSubmatchIndex(data, -1) {
		out = append(out, Candidate{
			Path: path,
			Line: bytes.Count(data[:m[2]], []byte("\n")) + 1,
			Text: strings.Join(strings.Fields(string(data[m[0]:m[1]])), " "),
			Name: string(data[m[2]:m[3]]),
		})
	}
	return out
}
