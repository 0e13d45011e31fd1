// Package synchint turns raw filesystem/container events into the
// hints stored on syncindex.Node, merging each new event with
// whatever hint is already pending so that, for example, a modify
// following a move collapses into a single coherent instruction
// instead of two.
package synchint

import (
	"github.com/sirupsen/logrus"

	"github.com/nicolagi/bajoo-sync/internal/syncindex"
)

var log = logrus.WithField("pkg", "synchint")

// Builder applies events to nodes of a single syncindex.IndexTree.
// The tree's lock must be held by the caller for the whole lifetime
// of the *Node passed to each method: Apply* methods may touch more
// than one node (e.g. both halves of a move) and must observe a
// consistent snapshot of the tree while doing so.
type Builder struct {
	tree *syncindex.IndexTree
}

// New returns a Builder operating on tree.
func New(tree *syncindex.IndexTree) *Builder {
	return &Builder{tree: tree}
}

// ApplyModified applies a "content modified" event observed in scope
// to node, merging with whatever hint is already pending there.
func (b *Builder) ApplyModified(node *syncindex.Node, scope syncindex.Scope, newState interface{}) {
	switch prev := node.Hint(scope).(type) {
	case nil, syncindex.DeletedHint, syncindex.ModifiedHint:
		node.SetHint(scope, syncindex.ModifiedHint{NewState: newState})
	case syncindex.SourceMoveHint:
		// The node moved away, then the content at the old location
		// changed again before the move was processed: the old state
		// effectively becomes a fresh modification at the destination,
		// and this node itself is simply modified in place.
		if prev.Dest != nil {
			prev.Dest.SetHint(scope, syncindex.ModifiedHint{NewState: node.State(scope)})
		}
		node.SetHint(scope, syncindex.ModifiedHint{NewState: newState})
	case syncindex.DestMoveHint:
		// The move's source is now stale: the content really just
		// appeared fresh at this destination, so the source is deleted
		// and this node is a plain modification.
		if prev.Source != nil {
			b.setDeleteHint(prev.Source, scope)
		}
		node.SetHint(scope, syncindex.ModifiedHint{NewState: newState})
	}
}

// ApplyDeleted applies a "content deleted" event observed in scope to
// node.
func (b *Builder) ApplyDeleted(node *syncindex.Node, scope syncindex.Scope) {
	switch prev := node.Hint(scope).(type) {
	case syncindex.SourceMoveHint:
		// The source of a move being deleted out from under the move is
		// a race between the watcher and the task executing the move;
		// the move hint already accounts for the source disappearing.
		log.WithField("path", node.Path()).Debug("ignoring delete of a move source")
	case syncindex.DestMoveHint:
		b.setDeleteHint(node, scope)
		if prev.Source != nil {
			b.setDeleteHint(prev.Source, scope)
		}
	default:
		b.setDeleteHint(node, scope)
	}
}

// setDeleteHint implements _set_delete_hint: if the node never
// existed in this scope and the other scope isn't carrying a hint
// that would keep it alive, the node is simply removed from the index
// instead of being given a DeletedHint to carry around.
func (b *Builder) setDeleteHint(node *syncindex.Node, scope syncindex.Scope) {
	other := scope.Other()
	if node.State(scope) == nil {
		switch node.Hint(other).(type) {
		case nil, syncindex.DeletedHint:
			node.RemoveItself()
			return
		}
	}
	node.SetHint(scope, syncindex.DeletedHint{})
}

// ApplyMove applies a "moved from srcNode to node" event observed in
// scope. srcNode may be nil if the move's source could not be
// resolved to an index node.
func (b *Builder) ApplyMove(srcNode, node *syncindex.Node, scope syncindex.Scope) {
	if srcNode == nil {
		b.ApplyModified(node, scope, node.State(scope))
		return
	}

	// Breaking any hint already pointing at node as a destination
	// avoids leaving a dangling, one-sided coupled pair.
	if destHint, ok := node.Hint(scope).(syncindex.DestMoveHint); ok && destHint.Source != nil {
		destHint.Source.SetHint(scope, nil)
	}

	switch prevSrc := srcNode.Hint(scope).(type) {
	case nil:
		b.setMoveHints(srcNode, node, scope)
	case syncindex.ModifiedHint:
		// The source was modified before the move was observed: fold
		// that modification into the destination instead, since the
		// source no longer exists as of the move.
		node.SetHint(scope, syncindex.ModifiedHint{NewState: prevSrc.NewState})
		srcNode.SetHint(scope, nil)
	case syncindex.DeletedHint:
		node.SetHint(scope, syncindex.ModifiedHint{NewState: node.State(scope)})
		srcNode.SetHint(scope, nil)
	case syncindex.SourceMoveHint:
		log.WithFields(logrus.Fields{"from": srcNode.Path(), "to": node.Path()}).
			Warn("double move of the same source, ignoring the earlier one")
		b.setMoveHints(srcNode, node, scope)
	case syncindex.DestMoveHint:
		// A was moved to srcNode, now srcNode is moved to node: collapse
		// the chain into a single A -> node move. If A == node (a
		// round trip), there is nothing left to report.
		origin := prevSrc.Source
		srcNode.SetHint(scope, nil)
		if origin == node {
			node.SetHint(scope, nil)
			return
		}
		if origin != nil {
			b.setMoveHints(origin, node, scope)
		} else {
			b.setMoveHints(srcNode, node, scope)
		}
	}
}

func (b *Builder) setMoveHints(src, dest *syncindex.Node, scope syncindex.Scope) {
	src.SetHint(scope, syncindex.SourceMoveHint{Dest: dest})
	dest.SetHint(scope, syncindex.DestMoveHint{Source: src})
}

// BreakCoupledHints clears the hint a move partner holds about node,
// so that acquiring node for a task doesn't leave the partner
// pointing at a node that is about to change hint state underneath
// it. Called by TaskBuilder before a task acquires a node.
func BreakCoupledHints(node *syncindex.Node, scope syncindex.Scope) {
	switch h := node.Hint(scope).(type) {
	case syncindex.SourceMoveHint:
		if h.Dest != nil {
			h.Dest.SetHint(scope, nil)
		}
	case syncindex.DestMoveHint:
		if h.Source != nil {
			h.Source.SetHint(scope, nil)
		}
	}
}
