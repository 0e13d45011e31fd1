// Package syncsched implements the fair round-robin dispatch across
// every IndexTree a running daemon manages.
package syncsched

import (
	"sync"

	"github.com/nicolagi/bajoo-sync/internal/syncindex"
)

// entry pairs one tree with its currently active browse iterator.
type entry struct {
	tree *syncindex.IndexTree
	iter *syncindex.BrowseIterator
}

// Scheduler visits a set of IndexTrees round-robin, handing the
// caller one dirty, task-free node at a time. Its methods are
// serialized by an internal mutex; the round-robin order assumes a
// single sync coordinator driving GetNode.
type Scheduler struct {
	mu      sync.Mutex
	trees   []*syncindex.IndexTree
	entries []entry
	nextIdx int
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// AddTree registers tree with the scheduler.
func (s *Scheduler) AddTree(tree *syncindex.IndexTree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees = append(s.trees, tree)
}

// RemoveTree unregisters tree, closing its active iterator if any and
// rewinding the round-robin index if it is now out of bounds.
func (s *Scheduler) RemoveTree(tree *syncindex.IndexTree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.trees {
		if t == tree {
			s.trees = append(s.trees[:i], s.trees[i+1:]...)
			break
		}
	}
	for i, e := range s.entries {
		if e.tree == tree {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	if s.nextIdx >= len(s.trees) {
		s.nextIdx = 0
	}
}

// GetNode returns the next (tree, node) pair ready to be worked on,
// or (nil, nil) if every tree is clean or every dirty node currently
// has a task assigned. It never blocks.
func (s *Scheduler) GetNode() (*syncindex.IndexTree, *syncindex.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drain existing generators first, in their current order, before
	// starting a new one: this is what guarantees no tree is starved
	// ( fairness).
	for i := 0; i < len(s.entries); i++ {
		e := s.entries[i]
		node, status := e.iter.Next()
		switch status {
		case syncindex.StatusNode:
			return e.tree, node
		case syncindex.StatusDone:
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			i--
		case syncindex.StatusWait:
			// This tree's remaining dirty nodes are all busy; leave its
			// iterator in place and keep checking the others.
		}
	}

	if len(s.trees) == 0 {
		return nil, nil
	}

	// No existing generator produced a node: start fresh ones, walking
	// the tree list at most once from the current round-robin
	// position, same as the Python scheduler's single pass per
	// get_node() call.
	start := s.nextIdx
	for visited := 0; visited < len(s.trees); visited++ {
		idx := (start + visited) % len(s.trees)
		tree := s.trees[idx]
		iter := tree.Browse()
		node, status := iter.Next()
		s.nextIdx = (idx + 1) % len(s.trees)
		switch status {
		case syncindex.StatusNode:
			s.entries = append(s.entries, entry{tree: tree, iter: iter})
			return tree, node
		case syncindex.StatusWait:
			s.entries = append(s.entries, entry{tree: tree, iter: iter})
		case syncindex.StatusDone:
			// Tree is clean; nothing to keep.
		}
	}
	return nil, nil
}

// Len reports how many trees are currently registered.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trees)
}
