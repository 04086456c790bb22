package registry

import (
	"errors"
	"io/fs"
	"os"
	stdpath "path"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystem is the read-only filesystem capability the scanner needs.
// Implementations treat a missing path as "nothing there" rather than an error
// wherever the method signature allows it.
type FileSystem interface {
	// Exists reports whether path exists (file or directory).
	Exists(path string) bool
	// IsDir reports whether path exists and is a directory.
	IsDir(path string) bool
	// ReadFile returns the file contents.
	ReadFile(path string) ([]byte, error)
	// ListDir returns the names of direct children of dir matching a glob
	// pattern, sorted. A missing directory yields an empty list.
	ListDir(dir, pattern string) ([]string, error)
	// Join joins path elements using the filesystem's separator.
	Join(elem ...string) string
}

// OSFileSystem reads from the host filesystem.
type OSFileSystem struct{}

// Ensure OSFileSystem implements FileSystem.
var _ FileSystem = OSFileSystem{}

// Exists reports whether path exists on disk.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is a directory on disk.
func (OSFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ReadFile reads path from disk.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // G304: paths come from configured resource directories
}

// ListDir lists direct children of dir whose name matches pattern.
func (OSFileSystem) ListDir(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	return matchNames(entries, pattern)
}

// Join joins elements with the OS separator.
func (OSFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// IOFileSystem adapts an fs.FS (os.DirFS, embed.FS, fstest.MapFS) to FileSystem.
// Paths are slash-separated and relative to the root of the fs.FS.
type IOFileSystem struct {
	fsys fs.FS
}

// Ensure IOFileSystem implements FileSystem.
var _ FileSystem = (*IOFileSystem)(nil)

// NewIOFileSystem wraps fsys.
func NewIOFileSystem(fsys fs.FS) *IOFileSystem {
	return &IOFileSystem{fsys: fsys}
}

// clean converts a caller path into a valid fs.FS name.
func (f *IOFileSystem) clean(p string) string {
	p = stdpath.Clean(strings.TrimPrefix(filepath.ToSlash(p), "/"))
	if p == "" || p == "/" {
		return "."
	}
	return p
}

// Exists reports whether path exists in the wrapped fs.FS.
func (f *IOFileSystem) Exists(path string) bool {
	_, err := fs.Stat(f.fsys, f.clean(path))
	return err == nil
}

// IsDir reports whether path is a directory in the wrapped fs.FS.
func (f *IOFileSystem) IsDir(path string) bool {
	info, err := fs.Stat(f.fsys, f.clean(path))
	return err == nil && info.IsDir()
}

// ReadFile reads path from the wrapped fs.FS.
func (f *IOFileSystem) ReadFile(path string) ([]byte, error) {
	return fs.ReadFile(f.fsys, f.clean(path))
}

// ListDir lists direct children of dir whose name matches pattern.
func (f *IOFileSystem) ListDir(dir, pattern string) ([]string, error) {
	entries, err := fs.ReadDir(f.fsys, f.clean(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	return matchNames(entries, pattern)
}

// Join joins elements with forward slashes.
func (f *IOFileSystem) Join(elem ...string) string {
	return stdpath.Join(elem...)
}

func matchNames(entries []fs.DirEntry, pattern string) ([]string, error) {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ok, err := stdpath.Match(pattern, e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
