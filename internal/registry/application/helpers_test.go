package registry

import (
	"testing/fstest"
)

// memFS builds an IOFileSystem from path -> contents.
func memFS(files map[string]string) *IOFileSystem {
	m := fstest.MapFS{}
	for p, c := range files {
		m[p] = &fstest.MapFile{Data: []byte(c)}
	}
	return NewIOFileSystem(m)
}

// addFile mutates the MapFS behind fsys.
func addFile(fsys *IOFileSystem, path, contents string) {
	fsys.fsys.(fstest.MapFS)[path] = &fstest.MapFile{Data: []byte(contents)}
}

// removeFile deletes path from the MapFS behind fsys.
func removeFile(fsys *IOFileSystem, path string) {
	delete(fsys.fsys.(fstest.MapFS), path)
}
