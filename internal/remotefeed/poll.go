// Package remotefeed implements the remote change-feed collaborator
// HintBuilder consumes in the remote scope: a stream of
// (path, remote_hash) additions/modifications and path deletions.
//
// No object store here offers server-push or long-poll notifications,
// so the concrete Feed re-lists the container on a fixed interval and
// diffs against its last snapshot, mirroring the same polling approach
// internal/watcher takes on the local side. Moves are not
// reconstructed: a remote rename surfaces as a delete paired with an
// add.
package remotefeed

import (
	"time"

	"github.com/nicolagi/bajoo-sync/internal/container"
)

// EventKind identifies whether an Event is an addition/change or a
// removal.
type EventKind int

const (
	Modified EventKind = iota
	Deleted
)

// Event is one remote change, already relative to the container root.
// RemoteHash is only meaningful for Modified.
type Event struct {
	Kind       EventKind
	Path       string
	RemoteHash string
}

// Feed emits a stream of Events for one container.
type Feed interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Poller is a Feed that re-lists a container.Container on a fixed
// interval and diffs against its last listing to synthesize
// Modified/Deleted events.
type Poller struct {
	source   container.Container
	interval time.Duration

	events chan Event
	errs   chan error
	stop   chan struct{}
	done   chan struct{}
}

var _ Feed = (*Poller)(nil)

// NewPoller returns a Poller over source, polling every interval.
func NewPoller(source container.Container, interval time.Duration) *Poller {
	p := &Poller{
		source:   source,
		interval: interval,
		events:   make(chan Event, 64),
		errs:     make(chan error, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Poller) Events() <-chan Event { return p.events }
func (p *Poller) Errors() <-chan error { return p.errs }

func (p *Poller) Close() error {
	close(p.stop)
	<-p.done
	close(p.events)
	close(p.errs)
	return nil
}

func (p *Poller) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	previous := p.list() // Prime the initial listing without emitting spurious events.
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			current := p.list()
			p.diff(previous, current)
			previous = current
		}
	}
}

func (p *Poller) list() map[string]string {
	entries, err := p.source.ListFiles()
	if err != nil {
		select {
		case p.errs <- err:
		case <-p.stop:
		}
		return nil
	}
	hashes := make(map[string]string, len(entries))
	for _, e := range entries {
		hashes[e.Path] = e.RemoteHash
	}
	return hashes
}

func (p *Poller) diff(previous, current map[string]string) {
	for path, hash := range current {
		if prev, existed := previous[path]; !existed || prev != hash {
			p.emit(Event{Kind: Modified, Path: path, RemoteHash: hash})
		}
	}
	for path := range previous {
		if _, stillThere := current[path]; !stillThere {
			p.emit(Event{Kind: Deleted, Path: path})
		}
	}
}

func (p *Poller) emit(e Event) {
	select {
	case p.events <- e:
	case <-p.stop:
	}
}
