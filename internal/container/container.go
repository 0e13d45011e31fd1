// Package container implements the remote Container collaborator the
// synchronisation core talks to: a path-addressed, encrypted blob
// store exposing upload/download/remove/list_files. The core itself
// never depends on a concrete implementation, only this interface.
package container

import (
	"io"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Download and Remove when path does not
// exist in the container. RemovedLocalFilesTask treats it as success.
var ErrNotFound = errors.New("container: not found")

// FileEntry is one row of a container listing: a path relative to the
// container root and its current remote content hash.
type FileEntry struct {
	Path       string
	RemoteHash string
}

// UploadResult is returned by Upload once the container has accepted
// and hashed the new content.
type UploadResult struct {
	NewRemoteHash string
}

// Container is the remote collaborator consumed by the sync tasks.
// Implementations must be safe for concurrent use: tasks for distinct
// nodes of the same tree may call it concurrently.
type Container interface {
	// Upload streams content to path, returning the hash the remote
	// side computed for it.
	Upload(path string, content io.Reader) (UploadResult, error)
	// Download returns a stream of path's content. Callers must close
	// it.
	Download(path string) (io.ReadCloser, error)
	// Remove deletes path. Removing an already-absent path returns an
	// error wrapping ErrNotFound, which the calling tasks treat as
	// success.
	Remove(path string) error
	// ListFiles returns every file currently known to the container.
	ListFiles() ([]FileEntry, error)
}
