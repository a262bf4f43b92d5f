package normalizer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFS wraps OSFileSystem, records writes and locks, and can fail
// reads or writes for chosen base names.
type recordingFS struct {
	*OSFileSystem

	mu        sync.Mutex
	writes    []string
	locks     []string
	failRead  map[string]error
	failWrite map[string]error
}

func newRecordingFS() *recordingFS {
	return &recordingFS{
		OSFileSystem: NewOSFileSystem(false),
		failRead:     map[string]error{},
		failWrite:    map[string]error{},
	}
}

func (r *recordingFS) ReadFile(path string) ([]byte, error) {
	if err, ok := r.failRead[filepath.Base(path)]; ok {
		return nil, err
	}
	return r.OSFileSystem.ReadFile(path)
}

func (r *recordingFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	r.mu.Lock()
	r.writes = append(r.writes, path)
	r.mu.Unlock()
	if err, ok := r.failWrite[filepath.Base(path)]; ok {
		return err
	}
	return r.OSFileSystem.WriteFile(path, data, perm)
}

func (r *recordingFS) Lock(path string) (func() error, error) {
	r.mu.Lock()
	r.locks = append(r.locks, path)
	r.mu.Unlock()
	return r.OSFileSystem.Lock(path)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNormalizeScenarios(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		want         string
		wantModified int
	}{
		{name: "crlf collapsed", content: "a\r\nb\r\nc", want: "a\nb\nc", wantModified: 1},
		{name: "lfcr collapsed", content: "a\n\rb", want: "a\nb", wantModified: 1},
		{name: "no cr untouched", content: "plain text, no CR", want: "plain text, no CR", wantModified: 0},
		{name: "lone cr rewritten unchanged", content: "a\rb", want: "a\rb", wantModified: 1},
		{name: "empty file", content: "", want: "", wantModified: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, map[string]string{"file.txt": tt.content})

			fsys := newRecordingFS()
			report, err := New(fsys, nil).Normalize(context.Background(), root, Options{})
			require.NoError(t, err)

			assert.Equal(t, tt.want, readFile(t, filepath.Join(root, "file.txt")))
			assert.Len(t, report.Modified, tt.wantModified)
			assert.Len(t, fsys.writes, tt.wantModified)
			assert.Equal(t, 1, report.Scanned)
		})
	}
}

func TestNormalizeEmptyTree(t *testing.T) {
	root := t.TempDir()

	report, err := Normalize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Modified)
	assert.Equal(t, 0, report.Scanned)
	assert.NotEmpty(t, report.RunID)
}

func TestNormalizeUntouchedFilesAreNeverWritten(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"clean.txt":       "one\ntwo\n",
		"nested/also.txt": "three\n",
		"dirty.txt":       "x\r\ny",
	})
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	clean := filepath.Join(root, "clean.txt")
	require.NoError(t, os.Chtimes(clean, old, old))

	fsys := newRecordingFS()
	report, err := New(fsys, nil).Normalize(context.Background(), root, Options{})
	require.NoError(t, err)

	dirty := filepath.Join(report.Root, "dirty.txt")
	assert.Equal(t, []string{dirty}, fsys.writes)
	assert.Equal(t, []string{dirty}, fsys.locks)
	assert.Equal(t, []string{dirty}, report.ModifiedPaths())

	info, err := os.Stat(clean)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "mtime of clean file changed")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "a\r\nb\r\n",
		"b/c.txt":   "c\n\rd",
		"b/d.bin":   "\x00\x01\r\n\x02",
		"clean.txt": "nothing here",
	})

	first, err := Normalize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Len(t, first.Modified, 3)

	snapshot := map[string]string{}
	for _, p := range []string{"a.txt", "b/c.txt", "b/d.bin", "clean.txt"} {
		snapshot[p] = readFile(t, filepath.Join(root, p))
	}

	fsys := newRecordingFS()
	second, err := New(fsys, nil).Normalize(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Empty(t, second.Modified)
	assert.Empty(t, fsys.writes)

	for p, content := range snapshot {
		assert.Equal(t, content, readFile(t, filepath.Join(root, p)), p)
	}
}

func TestNormalizeLoneCRIsFlagged(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"lone.txt": "a\rb\r\nc"})

	report, err := Normalize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, report.Modified, 1)
	assert.Equal(t, 1, report.Modified[0].LoneCR)
	assert.Equal(t, 7, report.Modified[0].BytesBefore)
	assert.Equal(t, 6, report.Modified[0].BytesAfter)
	assert.Equal(t, "a\rb\nc", readFile(t, filepath.Join(root, "lone.txt")))
	assert.Len(t, report.LoneCRFiles(), 1)
}

func TestNormalizeSkipUnchanged(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"lone.txt": "a\rb"})

	fsys := newRecordingFS()
	report, err := New(fsys, nil).Normalize(context.Background(), root, Options{SkipUnchanged: true})
	require.NoError(t, err)
	assert.Empty(t, report.Modified)
	assert.Empty(t, fsys.writes)
}

func TestNormalizeDryRun(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a\r\nb"})

	fsys := newRecordingFS()
	report, err := New(fsys, nil).Normalize(context.Background(), root, Options{DryRun: true})
	require.NoError(t, err)

	require.Len(t, report.Modified, 1)
	assert.False(t, report.Modified[0].Written)
	assert.True(t, report.DryRun)
	assert.Empty(t, fsys.writes)
	assert.Empty(t, fsys.locks)
	assert.Equal(t, "a\r\nb", readFile(t, filepath.Join(root, "a.txt")))
}

func TestNormalizeExcludeDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep/a.txt":       "a\r\n",
		".git/objects/b":   "b\r\n",
		"vendor/lib/c.txt": "c\r\n",
	})

	report, err := Normalize(context.Background(), root, Options{ExcludeDirs: []string{".git", "vendor"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(report.Root, "keep", "a.txt")}, report.ModifiedPaths())
	assert.Equal(t, "b\r\n", readFile(t, filepath.Join(root, ".git", "objects", "b")))
	assert.Equal(t, "c\r\n", readFile(t, filepath.Join(root, "vendor", "lib", "c.txt")))
}

func TestNormalizeWalksHiddenDirsByDefault(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{".hidden/a.txt": "a\r\n"})

	report, err := Normalize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Modified, 1)
}

func TestNormalizeSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"target.txt": "t\r\n"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken")))

	report, err := Normalize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)

	assert.Empty(t, report.Modified)
	assert.Len(t, report.Skipped, 2)
	assert.Equal(t, "t\r\n", readFile(t, filepath.Join(outside, "target.txt")))
}

func TestNormalizeSymlinkedRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	real := t.TempDir()
	writeTree(t, real, map[string]string{"a.txt": "a\r\n"})
	link := filepath.Join(t.TempDir(), "root")
	require.NoError(t, os.Symlink(real, link))

	report, err := Normalize(context.Background(), link, Options{}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Modified, 1)
	assert.Equal(t, "a\n", readFile(t, filepath.Join(real, "a.txt")))
}

func TestNormalizePreservesFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix modes only")
	}
	for _, atomicWrite := range []bool{false, true} {
		root := t.TempDir()
		path := filepath.Join(root, "script.sh")
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\r\necho hi\r\n"), 0755))
		require.NoError(t, os.Chmod(path, 0755))

		_, err := Normalize(context.Background(), root, Options{AtomicWrite: atomicWrite}, nil)
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, fs.FileMode(0755), info.Mode().Perm(), "atomic=%v", atomicWrite)
		assert.Equal(t, "#!/bin/sh\necho hi\n", readFile(t, path))
	}
}

func TestNormalizeRootErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "does-not-exist")
		report, err := Normalize(context.Background(), root, Options{}, nil)
		require.Error(t, err)
		require.NotNil(t, report)

		var notFound *PathNotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("root is a file", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		_, err := Normalize(context.Background(), path, Options{}, nil)
		var notDir *NotDirectoryError
		assert.ErrorAs(t, err, &notDir)
	})
}

func TestNormalizeHaltsOnFirstError(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt": "a\r\n",
		"b.txt": "b\r\n",
		"c.txt": "c\r\n",
	})

	fsys := newRecordingFS()
	fsys.failRead["b.txt"] = fs.ErrPermission

	report, err := New(fsys, nil).Normalize(context.Background(), root, Options{})
	require.Error(t, err)

	var denied *PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "read", denied.Op)
	assert.Equal(t, filepath.Join(report.Root, "b.txt"), denied.Path)
	assert.ErrorIs(t, err, fs.ErrPermission)

	// a.txt was normalized before the halt, c.txt was never reached.
	assert.Equal(t, []string{filepath.Join(report.Root, "a.txt")}, report.ModifiedPaths())
	assert.Equal(t, "a\n", readFile(t, filepath.Join(root, "a.txt")))
	assert.Equal(t, "c\r\n", readFile(t, filepath.Join(root, "c.txt")))
}

func TestNormalizeWriteFailure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a\r\n"})

	fsys := newRecordingFS()
	diskFull := errors.New("no space left on device")
	fsys.failWrite["a.txt"] = diskFull

	report, err := New(fsys, nil).Normalize(context.Background(), root, Options{})
	var ioErr *FileIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.ErrorIs(t, err, diskFull)
	assert.Empty(t, report.Modified)
}

func TestNormalizeRealPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("requires a non-root posix user")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"locked.txt": "a\r\n"})
	path := filepath.Join(root, "locked.txt")
	require.NoError(t, os.Chmod(path, 0000))
	t.Cleanup(func() { os.Chmod(path, 0644) })

	_, err := Normalize(context.Background(), root, Options{}, nil)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestNormalizeAtomicWrite(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a\r\nb\r\n", "sub/b.txt": "c\n\r"})

	report, err := Normalize(context.Background(), root, Options{AtomicWrite: true}, nil)
	require.NoError(t, err)
	require.Len(t, report.Modified, 2)

	assert.Equal(t, "a\nb\n", readFile(t, filepath.Join(root, "a.txt")))
	assert.Equal(t, "c\n", readFile(t, filepath.Join(root, "sub", "b.txt")))

	leftovers, err := filepath.Glob(filepath.Join(root, ".lfnorm-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestNormalizeReadOnlyFileIsRefused(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("requires a non-root posix user")
	}
	for _, atomicWrite := range []bool{false, true} {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"ro.txt": "a\r\n"})
		path := filepath.Join(root, "ro.txt")
		require.NoError(t, os.Chmod(path, 0444))

		report, err := Normalize(context.Background(), root, Options{AtomicWrite: atomicWrite}, nil)

		var denied *PermissionDeniedError
		require.ErrorAs(t, err, &denied, "atomic=%v", atomicWrite)
		assert.Equal(t, "write", denied.Op)
		assert.Empty(t, report.Modified)
		assert.Equal(t, "a\r\n", readFile(t, path), "atomic=%v", atomicWrite)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, fs.FileMode(0444), info.Mode().Perm())
	}
}

func TestNormalizeContextCanceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a\r\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Normalize(ctx, root, Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Modified)
	assert.Equal(t, "a\r\n", readFile(t, filepath.Join(root, "a.txt")))
}

func TestNormalizeConcurrentMatchesSequential(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".txt"] = name + "\r\n" + name
		files["sub/"+name+".txt"] = name + "\n"
	}

	seqRoot := t.TempDir()
	writeTree(t, seqRoot, files)
	parRoot := t.TempDir()
	writeTree(t, parRoot, files)

	seq, err := Normalize(context.Background(), seqRoot, Options{}, nil)
	require.NoError(t, err)
	par, err := Normalize(context.Background(), parRoot, Options{Jobs: 4}, nil)
	require.NoError(t, err)

	rel := func(r *Report) []string {
		var out []string
		for _, p := range r.ModifiedPaths() {
			rp, err := filepath.Rel(r.Root, p)
			require.NoError(t, err)
			out = append(out, rp)
		}
		return out
	}
	assert.Equal(t, rel(seq), rel(par))
	assert.Equal(t, seq.Scanned, par.Scanned)
	assert.Equal(t, 16, par.Scanned)

	for name := range files {
		assert.Equal(t, readFile(t, filepath.Join(seqRoot, name)), readFile(t, filepath.Join(parRoot, name)), name)
	}
}

// cancelingFS cancels the run while reading the named file.
type cancelingFS struct {
	*OSFileSystem
	cancelOn string
	cancel   context.CancelFunc
}

func (c *cancelingFS) ReadFile(path string) ([]byte, error) {
	if filepath.Base(path) == c.cancelOn {
		c.cancel()
	}
	return c.OSFileSystem.ReadFile(path)
}

func TestNormalizeConcurrentCanceledMidRun(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".txt"] = name + "\r\n"
	}
	writeTree(t, root, files)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fsys := &cancelingFS{OSFileSystem: NewOSFileSystem(false), cancelOn: "b.txt", cancel: cancel}

	_, err := New(fsys, nil).Normalize(ctx, root, Options{Jobs: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeConcurrentHaltsOnError(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a\r\n", "b.txt": "b\r\n"})

	fsys := newRecordingFS()
	fsys.failRead["a.txt"] = errors.New("boom")

	_, err := New(fsys, nil).Normalize(context.Background(), root, Options{Jobs: 2})
	var ioErr *FileIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

type captureLogger struct {
	mu    sync.Mutex
	info  []string
	warn  []string
	debug []string
}

func (c *captureLogger) LogDebug(m string) { c.mu.Lock(); c.debug = append(c.debug, m); c.mu.Unlock() }
func (c *captureLogger) LogInfo(m string)  { c.mu.Lock(); c.info = append(c.info, m); c.mu.Unlock() }
func (c *captureLogger) LogWarn(m string)  { c.mu.Lock(); c.warn = append(c.warn, m); c.mu.Unlock() }

func TestNormalizeLogsEachModifiedFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a\r\n", "b.txt": "b\n", "c.txt": "c\rc"})

	log := &captureLogger{}
	report, err := Normalize(context.Background(), root, Options{}, log)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"normalized " + filepath.Join(report.Root, "a.txt"),
		"normalized " + filepath.Join(report.Root, "c.txt"),
	}, log.info)
	require.Len(t, log.warn, 1)
	assert.Contains(t, log.warn[0], "c.txt")
}
