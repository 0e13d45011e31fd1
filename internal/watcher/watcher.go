// Package watcher implements the filesystem-watcher collaborator
// HintBuilder consumes: created/modified/deleted/moved events with
// paths normalized to forward-slash form, relative to the container
// root.
//
// The concrete Watcher is a polling implementation built on
// ioutil.ReadDir and stat-diffing rather than a platform notification
// API, so it behaves the same on every target OS; see DESIGN.md.
package watcher

import "path/filepath"

// EventKind identifies which of the four event shapes a Event carries.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Deleted
	Moved
)

// Event is one filesystem change, already normalized: Path (and
// OldPath for Moved) use forward slashes and are relative to the
// container root, never absolute.
type Event struct {
	Kind    EventKind
	Path    string
	OldPath string // only set for Moved
}

// Watcher emits a stream of Events for one container root. Directory
// events are never emitted: folders are re-derived by FolderTask.
type Watcher interface {
	// Events returns the channel events are delivered on. It is closed
	// when the watcher stops.
	Events() <-chan Event
	// Errors returns the channel non-fatal watch errors are delivered
	// on (e.g. a transient stat failure during a poll).
	Errors() <-chan error
	// Close stops the watcher.
	Close() error
}

// normalize turns an absolute path under root into the
// container-relative, forward-slash path HintBuilder expects.
func normalize(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
