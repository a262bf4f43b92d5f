// Package display formats user-facing output for the lfnorm CLI.
//
// # Changed Files
//
// PrintChanges lists the files a normalization run rewrote (or, in a dry
// run, would rewrite), relative to the run root:
//
//	Normalized files:
//	  [1/2] src/main.c (120 -> 114 bytes)
//	  [2/2] README.md (64 -> 61 bytes)
//	✓ Normalized 2 files
//
// # Warning Messages
//
// Warning renders a title with optional message, files and suggestion.
// WarnLoneCR builds the warning for files that still contain carriage
// returns after normalization:
//
//	display.WarnLoneCR(report.LoneCRFiles(), opts.SkipUnchanged).Display(os.Stderr)
//
// # Symbol Candidates
//
// PrintCandidates writes one grep-style line per candidate.
//
// Colors (github.com/fatih/color) are only emitted when the writer is a
// terminal and NO_COLOR is unset.
package display
