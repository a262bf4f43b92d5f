// Package normalizer rewrites files under a directory tree so that CR+LF and
// LF+CR line endings become a single LF.
//
// Processing is byte-wise: binary files are handled like text, and nothing is
// decoded. A file is only opened for writing when it contains at least one
// carriage-return byte. The first I/O failure halts the walk; the partial
// Report returned alongside the error lists what was already rewritten.
package normalizer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Logger receives per-file diagnostics.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// Options controls a single normalization run.
type Options struct {
	// ExcludeDirs lists directory base names that are not descended into.
	ExcludeDirs []string
	// DryRun computes the report without writing or locking any file.
	DryRun bool
	// AtomicWrite replaces files through temp file + rename. Only used by the
	// package-level Normalize, which builds its own OSFileSystem.
	AtomicWrite bool
	// SkipUnchanged leaves a file alone when the transform produced identical
	// bytes (a CR with no adjacent LF). Off by default, matching the
	// rewrite-whenever-CR-is-present behavior.
	SkipUnchanged bool
	// Jobs is the number of files processed concurrently (<= 1 means sequential).
	Jobs int
}

// FileChange describes one rewritten (or, in dry-run, rewritable) file.
type FileChange struct {
	Path        string `yaml:"path"`
	BytesBefore int    `yaml:"bytes_before"`
	BytesAfter  int    `yaml:"bytes_after"`
	// LoneCR counts carriage returns still present after the transform.
	LoneCR  int  `yaml:"lone_cr,omitempty"`
	Written bool `yaml:"written"`
}

// Report is the result of a normalization run.
type Report struct {
	RunID     string        `yaml:"run_id"`
	Root      string        `yaml:"root"`
	DryRun    bool          `yaml:"dry_run"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Scanned   int           `yaml:"scanned"`
	Modified  []FileChange  `yaml:"modified"`
	Skipped   []string      `yaml:"skipped,omitempty"`
}

// ModifiedPaths returns the paths of all modified files in walk order.
func (r *Report) ModifiedPaths() []string {
	paths := make([]string, 0, len(r.Modified))
	for _, c := range r.Modified {
		paths = append(paths, c.Path)
	}
	return paths
}

// LoneCRFiles returns the modified files that still contain a carriage return.
func (r *Report) LoneCRFiles() []string {
	var paths []string
	for _, c := range r.Modified {
		if c.LoneCR > 0 {
			paths = append(paths, c.Path)
		}
	}
	return paths
}

// Normalizer walks directory trees and rewrites line endings.
type Normalizer struct {
	fs     FileSystem
	logger Logger
}

// New creates a Normalizer over fsys. A nil logger discards diagnostics.
func New(fsys FileSystem, logger Logger) *Normalizer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Normalizer{fs: fsys, logger: logger}
}

// Normalize runs a Normalizer on the local filesystem.
func Normalize(ctx context.Context, root string, opts Options, logger Logger) (*Report, error) {
	return New(NewOSFileSystem(opts.AtomicWrite), logger).Normalize(ctx, root, opts)
}

// Normalize walks root and rewrites every regular file that contains a
// carriage return. On error the returned report is still non-nil and holds
// the files processed before the failure.
func (n *Normalizer) Normalize(ctx context.Context, root string, opts Options) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Root:      root,
		DryRun:    opts.DryRun,
		StartedAt: start,
		Modified:  make([]FileChange, 0),
	}
	defer func() {
		report.Duration = time.Since(start)
	}()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return report, &FileIOError{Op: "resolve", Path: root, Cause: err}
	}
	report.Root = absRoot

	info, err := n.fs.Stat(absRoot)
	if err != nil {
		return report, classify("stat", absRoot, err)
	}
	if !info.IsDir() {
		return report, &NotDirectoryError{Path: absRoot}
	}

	// WalkDir does not descend into a symlinked root, so resolve it up front.
	if linfo, err := n.fs.Lstat(absRoot); err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
		resolved, err := n.fs.EvalSymlinks(absRoot)
		if err != nil {
			return report, classify("resolve", absRoot, err)
		}
		absRoot = resolved
		report.Root = absRoot
	}

	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		excluded[dir] = true
	}

	var scanned atomic.Int64
	defer func() {
		report.Scanned = int(scanned.Load())
	}()

	sequential := opts.Jobs <= 1
	var files []string

	err = n.fs.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return classify("read", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != absRoot && excluded[d.Name()] {
				n.logger.LogDebug(fmt.Sprintf("skipping excluded directory %s", path))
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			n.logger.LogDebug(fmt.Sprintf("skipping non-regular entry %s (%s)", path, d.Type()))
			report.Skipped = append(report.Skipped, path)
			return nil
		}

		if !sequential {
			files = append(files, path)
			return nil
		}

		change, err := n.processFile(path, opts, &scanned)
		if err != nil {
			return err
		}
		if change != nil {
			report.Modified = append(report.Modified, *change)
		}
		return nil
	})
	if err != nil || sequential {
		return report, err
	}

	return report, n.processConcurrently(ctx, files, opts, report, &scanned)
}

// processConcurrently handles files with at most opts.Jobs workers. The first
// failure stops new files from starting. Changes are recorded in walk order.
func (n *Normalizer) processConcurrently(ctx context.Context, files []string, opts Options, report *Report, scanned *atomic.Int64) error {
	changes := make([]*FileChange, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)

	for i, path := range files {
		i, path := i, path // per-iteration copies (pre-Go 1.22 loop semantics)
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			change, err := n.processFile(path, opts, scanned)
			if err != nil {
				return err
			}
			changes[i] = change
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		// The loop may stop early on cancellation without any worker failing.
		err = ctx.Err()
	}

	for _, change := range changes {
		if change != nil {
			report.Modified = append(report.Modified, *change)
		}
	}
	return err
}

// processFile normalizes a single regular file. It returns nil when the file
// was left untouched.
func (n *Normalizer) processFile(path string, opts Options, scanned *atomic.Int64) (*FileChange, error) {
	content, err := n.fs.ReadFile(path)
	if err != nil {
		return nil, classify("read", path, err)
	}
	scanned.Add(1)

	if !HasCR(content) {
		return nil, nil
	}

	if !opts.DryRun {
		unlock, err := n.fs.Lock(path)
		if err != nil {
			return nil, classify("lock", path, err)
		}
		defer unlock()

		// Content may have changed between the first read and the lock.
		content, err = n.fs.ReadFile(path)
		if err != nil {
			return nil, classify("read", path, err)
		}
		if !HasCR(content) {
			return nil, nil
		}
	}

	out := Transform(content)
	change := &FileChange{
		Path:        path,
		BytesBefore: len(content),
		BytesAfter:  len(out),
		LoneCR:      countCR(out),
	}

	if opts.SkipUnchanged && bytes.Equal(out, content) {
		n.logger.LogDebug(fmt.Sprintf("unchanged after transform, not rewriting %s", path))
		return nil, nil
	}

	if opts.DryRun {
		n.logger.LogInfo(fmt.Sprintf("would normalize %s", path))
		return change, nil
	}

	info, err := n.fs.Stat(path)
	if err != nil {
		return nil, classify("stat", path, err)
	}
	if err := n.fs.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return nil, classify("write", path, err)
	}
	change.Written = true

	n.logger.LogInfo(fmt.Sprintf("normalized %s", path))
	if change.LoneCR > 0 {
		n.logger.LogWarn(fmt.Sprintf("%s still contains %d carriage return(s) outside CR+LF/LF+CR pairs", path, change.LoneCR))
	}
	return change, nil
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}
