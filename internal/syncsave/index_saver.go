// Package syncsave implements the per-tree debounced, coalesced
// persister described in, ported from index_saver.py:
// repeated trigger_save calls within the inactivity window collapse
// into a single write, with a bounded number of rearms and a capped,
// backing-off retry on write failure.
package syncsave

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nicolagi/bajoo-sync/internal/syncindex"
)

var log = logrus.WithField("pkg", "syncsave")

const (
	saveAfterInactiveDuring = time.Second
	maxTimerRestarts        = 30
	maxWriteAttempts        = 6
)

// Saver debounces writes of one IndexTree's snapshot to disk.
type Saver struct {
	tree     *syncindex.IndexTree
	destPath string

	mu            sync.Mutex
	timer         *time.Timer
	timerPending  bool
	activitySince time.Time
	restarts      int
	stopped       bool

	now func() time.Time
}

// New returns a Saver that writes tree's snapshot to destPath.
func New(tree *syncindex.IndexTree, destPath string) *Saver {
	return &Saver{tree: tree, destPath: destPath, now: time.Now}
}

// TriggerSave notes that the tree changed and arms the debounce timer
// if none is already pending.
func (s *Saver) TriggerSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.activitySince = s.now()
	if s.timerPending {
		return
	}
	s.armLocked()
}

func (s *Saver) armLocked() {
	s.timerPending = true
	s.restarts = 0
	s.timer = time.AfterFunc(saveAfterInactiveDuring, s.fire)
}

// fire runs on the timer goroutine. If more activity arrived during
// the wait, it rearms (up to maxTimerRestarts); otherwise it writes.
func (s *Saver) fire() {
	s.mu.Lock()
	sinceLastActivity := s.now().Sub(s.activitySince)
	if sinceLastActivity < saveAfterInactiveDuring && s.restarts < maxTimerRestarts {
		s.restarts++
		s.timer = time.AfterFunc(saveAfterInactiveDuring, s.fire)
		s.mu.Unlock()
		return
	}
	s.timerPending = false
	s.mu.Unlock()

	if err := s.saveWithRetry(0); err != nil {
		log.WithError(err).Error("giving up on index save")
	}
}

func (s *Saver) saveWithRetry(attempt int) error {
	err := s.save()
	if err == nil {
		return nil
	}
	if attempt+1 >= maxWriteAttempts {
		return err
	}
	backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
	log.WithError(err).WithField("attempt", attempt+1).Warn("index save failed, retrying")
	time.Sleep(backoff)
	return s.saveWithRetry(attempt + 1)
}

// save serializes the tree and replaces destPath atomically.
func (s *Saver) save() error {
	data, err := s.tree.ExportData()
	if err != nil {
		return errors.Wrap(err, "syncsave: export")
	}
	dir := filepath.Dir(s.destPath)
	tmp, err := ioutil.TempFile(dir, ".bajoo-idx-*")
	if err != nil {
		return errors.Wrap(err, "syncsave: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "syncsave: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "syncsave: close temp file")
	}
	if err := os.Rename(tmpName, s.destPath); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "syncsave: replace index file")
	}
	hideIfWindows(s.destPath)
	return nil
}

// hideIfWindows sets the hidden attribute on dest where the host OS
// has that concept. On POSIX systems the leading dot in the index
// file name is already the convention for "hidden", so there is
// nothing else to do; this is a deliberate no-op off Windows.
func hideIfWindows(dest string) {
	if runtime.GOOS != "windows" {
		return
	}
	// The actual SetFileAttributes syscall needs golang.org/x/sys/windows,
	// which is not part of this module's dependency set; this is the
	// one documented gap, recorded in DESIGN.md.
	log.WithField("path", dest).Debug("hidden attribute not set: no windows syscall binding in this build")
}

// Stop cancels the pending timer, if any, and forces a synchronous
// save if one was pending.
func (s *Saver) Stop() {
	s.mu.Lock()
	wasPending := s.timerPending
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerPending = false
	s.stopped = true
	s.mu.Unlock()

	if wasPending {
		if err := s.saveWithRetry(0); err != nil {
			log.WithError(err).Error("final index save failed")
		}
	}
}
