package syncindex

import (
	"fmt"
	"path"
	"strings"
)

// Kind distinguishes the two node variants the sync core knows about.
// The server has no concept of folders, so only FileNode content is
// ever mirrored remotely; Kind drives the handful of places where
// that distinction matters (FolderExists, Hashes, SetHashes, the task
// picked by TaskBuilder).
type Kind int

const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "folder"
}

// Node is a member of an IndexTree, representing either a file or a
// folder (see Kind). It is the tagged-sum shape called for by the
// design notes: one struct, kind-specific state, dispatch on Kind
// rather than a class hierarchy.
//
// All field access from outside this package must hold the owning
// IndexTree's lock; Node itself does no locking.
type Node struct {
	name   string
	parent *Node

	children map[string]*Node

	sync  bool
	dirty bool

	// task is the opaque handle of the sync task currently holding
	// this node, if any. A non-nil task excludes other tasks from
	// acquiring the node (see Acquire/Release).
	task interface{}

	localHint  Hint
	remoteHint Hint

	kind Kind

	// localState/remoteState hold the last-observed content identity.
	// nil means absent. For folders, a present value is always the
	// bool true (remoteState is always nil: the server has no concept
	// of folders). For files, a present value is a content hash
	// string.
	localState  interface{}
	remoteState interface{}
}

// NewFolderNode constructs a folder node. The returned node is not
// attached to any tree; use IndexTree.GetOrCreateNodeByPath or
// Node.AddChild to attach it. A freshly built folder node is assumed
// to exist on disk: FolderTask corrects this the first time it
// actually lists the parent directory and finds the folder gone.
func NewFolderNode(name string) *Node {
	return &Node{
		name:        name,
		kind:        KindFolder,
		children:    make(map[string]*Node),
		dirty:       true,
		localState:  true,
	}
}

// NewFileNode constructs a file node, absent in both scopes until a
// hint or state assignment says otherwise.
func NewFileNode(name string) *Node {
	return &Node{
		name:     name,
		kind:     KindFile,
		children: make(map[string]*Node),
		dirty:    true,
	}
}

func (n *Node) Name() string { return n.name }
func (n *Node) Kind() Kind   { return n.kind }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) IsFolder() bool { return n.kind == KindFolder }
func (n *Node) IsFile() bool   { return n.kind == KindFile }

// Path returns the slash-separated path from the root to this node.
// The root itself has path ".".
func (n *Node) Path() string {
	if n.parent == nil {
		return "."
	}
	var parts []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		parts = append([]string{cur.name}, parts...)
	}
	return strings.Join(parts, "/")
}

// Children returns the node's children, keyed by name. Callers must
// not mutate the returned map.
func (n *Node) Children() map[string]*Node { return n.children }

func (n *Node) ChildByName(name string) *Node { return n.children[name] }

// AddChild attaches child as a child of n, propagating the dirty flag
// up the tree if the child is dirty. It is the caller's
// responsibility to ensure there is no existing child with the same
// name (get_or_create_node_by_path and FolderTask already check; the
// snapshot loader's importNode builds each folder's children from a
// map, so their names are distinct).
func (n *Node) AddChild(child *Node) {
	child.parent = n
	n.children[child.name] = child
	if child.dirty {
		n.propagateDirty()
	}
}

// RemoveChild detaches the named child, if present, and recomputes
// dirty flags over the remaining hierarchy.
func (n *Node) RemoveChild(name string) {
	child, ok := n.children[name]
	if !ok {
		return
	}
	delete(n.children, name)
	child.parent = nil
	if child.dirty {
		n.cleanDirtyFlags()
	}
}

// RemoveItself detaches this node from its parent, if any.
func (n *Node) RemoveItself() {
	if n.parent != nil {
		n.parent.RemoveChild(n.name)
	}
}

// Sync reports the node's own sync flag (not dirty, which also
// considers descendants).
func (n *Node) Sync() bool { return n.sync }

// SetSync updates the sync flag and propagates dirty/clean up the
// tree per invariant 4: setting sync=true clears dirty on this node
// and ancestors only as long as no child remains dirty; setting
// sync=false always marks this node and every ancestor dirty.
func (n *Node) SetSync(value bool) {
	n.sync = value
	if n.sync {
		n.cleanDirtyFlags()
	} else {
		n.propagateDirty()
	}
}

// Dirty reports whether this node or any descendant is not sync.
func (n *Node) Dirty() bool { return n.dirty }

func (n *Node) propagateDirty() {
	for cur := n; cur != nil && !cur.dirty; cur = cur.parent {
		cur.dirty = true
	}
}

func (n *Node) cleanDirtyFlags() {
	for cur := n; cur != nil && cur.sync; cur = cur.parent {
		for _, child := range cur.children {
			if child.dirty {
				return
			}
		}
		cur.dirty = false
	}
}

// SetAllHierarchyNotSync marks this node and every descendant as
// non-sync, without touching ancestors. Used by IndexTree.SetTreeNotSync
// to force a full rescan, e.g. after a CorruptIndex error.
func (n *Node) SetAllHierarchyNotSync() {
	n.sync = false
	n.dirty = true
	for _, child := range n.children {
		child.SetAllHierarchyNotSync()
	}
}

// Task returns the handle of the task currently holding this node, or
// nil if the node is free.
func (n *Node) Task() interface{} { return n.task }

// Acquire assigns task to the node and clears both hints, per
// invariant 5 and the TaskBuilder acquisition contract.
// Callers must have already broken any coupled move hints first.
func (n *Node) Acquire(task interface{}) {
	n.task = task
	n.localHint = nil
	n.remoteHint = nil
}

// ReleaseFailed clears the task handle without promoting the node to
// sync or pruning it, for a task that failed without resolving
// whatever made the node dirty in the first place. The node stays
// dirty so the scheduler revisits it on a later sweep.
func (n *Node) ReleaseFailed() {
	n.task = nil
}

// Release clears the task handle; if the node has no pending hint in
// either scope it is marked sync again; if it is absent, childless and
// unhinted it is detached from the tree entirely.
func (n *Node) Release() {
	n.task = nil
	if n.localHint == nil && n.remoteHint == nil {
		n.SetSync(true)
	}
	if !n.Exists() && len(n.children) == 0 && n.localHint == nil && n.remoteHint == nil {
		n.RemoveItself()
	}
}

func (n *Node) LocalHint() Hint  { return n.localHint }
func (n *Node) RemoteHint() Hint { return n.remoteHint }

func (n *Node) SetLocalHint(h Hint) { n.localHint = h }

func (n *Node) SetRemoteHint(h Hint) { n.remoteHint = h }

func (n *Node) Hint(scope Scope) Hint {
	if scope == ScopeRemote {
		return n.remoteHint
	}
	return n.localHint
}

func (n *Node) SetHint(scope Scope, h Hint) {
	if scope == ScopeRemote {
		n.remoteHint = h
	} else {
		n.localHint = h
	}
}

func (n *Node) State(scope Scope) interface{} {
	if scope == ScopeRemote {
		return n.remoteState
	}
	return n.localState
}

func (n *Node) setState(scope Scope, v interface{}) {
	if scope == ScopeRemote {
		n.remoteState = v
	} else {
		n.localState = v
	}
}

// Exists reports whether the node physically existed the last time it
// was synced, in either scope. It ignores pending hints.
func (n *Node) Exists() bool {
	return n.localState != nil || n.remoteState != nil
}

// ErrInvalidState is returned when a file node's hash pair is set
// inconsistently: content identity is only meaningful when both
// halves (local and remote) are known or both are absent.
var ErrInvalidState = fmt.Errorf("syncindex: invalid state")

// Hashes returns the file node's local and remote content hashes.
// Either may be empty, meaning absent in that scope. Calling this on
// a folder node always returns two empty strings.
func (n *Node) Hashes() (localHash, remoteHash string) {
	if n.kind != KindFile {
		return "", ""
	}
	if n.localState != nil {
		localHash, _ = n.localState.(string)
	}
	if n.remoteState != nil {
		remoteHash, _ = n.remoteState.(string)
	}
	return localHash, remoteHash
}

// SetHashes sets both halves of a file node's content identity.
// Setting one hash to empty while the other is non-empty fails with
// ErrInvalidState: both hashes must be set, or both cleared.
func (n *Node) SetHashes(localHash, remoteHash string) error {
	if n.kind != KindFile {
		return fmt.Errorf("syncindex: SetHashes on a %v node", n.kind)
	}
	if (localHash == "") != (remoteHash == "") {
		return ErrInvalidState
	}
	if localHash == "" {
		n.localState = nil
		n.remoteState = nil
		return nil
	}
	n.localState = localHash
	n.remoteState = remoteHash
	return nil
}

// FolderExists reports whether the directory this node represents
// exists on the local filesystem. Only meaningful for folder nodes.
func (n *Node) FolderExists() bool {
	if n.kind != KindFolder {
		return false
	}
	exists, _ := n.localState.(bool)
	return exists
}

// SetFolderExists records whether the folder exists locally. Only
// meaningful for folder nodes.
func (n *Node) SetFolderExists(exists bool) {
	if n.kind != KindFolder {
		return
	}
	if exists {
		n.localState = true
	} else {
		n.localState = nil
	}
}

// JoinPath joins a base path and a name the way the rest of the
// package expects: forward slashes, normalized.
func JoinPath(base, name string) string {
	return path.Join(base, name)
}
