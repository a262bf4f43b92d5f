package normalizer

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrison/lfnorm/internal/filelock"
)

// FileSystem is the set of filesystem operations the normalizer performs.
// Tests substitute an implementation that records or fails calls.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	EvalSymlinks(path string) (string, error)
	WalkDir(root string, fn fs.WalkDirFunc) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	// Lock takes an advisory lock on an existing file and returns the release func.
	Lock(path string) (func() error, error)
}

// OSFileSystem implements FileSystem on the local disk.
type OSFileSystem struct {
	// Atomic routes writes through a temp file and rename instead of
	// truncating the target in place.
	Atomic bool
}

// NewOSFileSystem creates an OSFileSystem.
func NewOSFileSystem(atomic bool) *OSFileSystem {
	return &OSFileSystem{Atomic: atomic}
}

// Stat follows symlinks, like os.Stat.
func (o *OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Lstat does not follow symlinks.
func (o *OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (o *OSFileSystem) EvalSymlinks(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// WalkDir walks the tree without following symlinks.
func (o *OSFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

func (o *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces the whole content of path. The existing file mode is kept.
// In atomic mode a file that could not be opened for writing is refused, as in
// place, since the rename itself only needs permission on the directory.
func (o *OSFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	if o.Atomic {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		return filelock.AtomicWrite(path, data, perm)
	}
	return os.WriteFile(path, data, perm)
}

func (o *OSFileSystem) Lock(path string) (func() error, error) {
	lock := filelock.NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	return lock.Unlock, nil
}
