package syncindex

import (
	"path"
	"strings"
	"sync"
)

// IndexTree indexes every file and folder known inside one container,
// tracking sync/dirty state and pending hints. One IndexTree exists
// per container. All node access must happen while holding
// the tree's lock: exported accessors that read or write node state
// document whether they take the lock themselves or assume the
// caller already holds it, matching the "one lock per tree" model of
// _examples/nicolagi-muscle/cmd/musclefs/ops.go, which guards
// *tree.Tree with its own sync.Mutex.
type IndexTree struct {
	mu   sync.Mutex
	root *Node
}

// NewIndexTree returns an empty tree; its root folder node is created
// lazily on first use (matching get_or_create_node_by_path in the
// original).
func NewIndexTree() *IndexTree {
	return &IndexTree{}
}

// Lock acquires the tree's lock. Callers of the *Locked methods below
// must hold it first.
func (t *IndexTree) Lock() { t.mu.Lock() }

// Unlock releases the tree's lock.
func (t *IndexTree) Unlock() { t.mu.Unlock() }

// splitPath normalizes a slash-separated, container-relative path
// into its components. "." and "" both mean the root and yield no
// components.
func splitPath(p string) []string {
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}

// RootLocked returns the tree's root node, or nil if nothing has been
// indexed yet. The caller must hold the lock.
func (t *IndexTree) RootLocked() *Node { return t.root }

// GetNodeByPathLocked looks up a node by path, returning nil if any
// intermediate folder is missing. "." returns the root. The caller
// must hold the lock.
func (t *IndexTree) GetNodeByPathLocked(nodePath string) *Node {
	names := splitPath(nodePath)
	if names == nil {
		return t.root
	}
	node := t.root
	for _, name := range names {
		if node == nil {
			return nil
		}
		node = node.children[name]
	}
	return node
}

// GetOrCreateNodeByPathLocked looks up a node by path, creating any
// missing intermediate FolderNodes and, if the leaf itself is
// missing, building it with leafFactory. The caller must hold the
// lock.
func (t *IndexTree) GetOrCreateNodeByPathLocked(nodePath string, leafFactory func(name string) *Node) *Node {
	if t.root == nil {
		t.root = NewFolderNode(".")
	}
	names := splitPath(nodePath)
	if names == nil {
		return t.root
	}
	node := t.root
	for i, name := range names {
		parent := node
		node = parent.children[name]
		if node == nil {
			if i+1 == len(names) {
				node = leafFactory(name)
			} else {
				node = NewFolderNode(name)
			}
			parent.AddChild(node)
		}
	}
	return node
}

// GetNodeByPath is the locking convenience wrapper around
// GetNodeByPathLocked, for callers that don't need to couple the
// lookup with further locked mutation.
func (t *IndexTree) GetNodeByPath(nodePath string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.GetNodeByPathLocked(nodePath)
}

// GetOrCreateNodeByPath is the locking convenience wrapper around
// GetOrCreateNodeByPathLocked.
func (t *IndexTree) GetOrCreateNodeByPath(nodePath string, leafFactory func(name string) *Node) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.GetOrCreateNodeByPathLocked(nodePath, leafFactory)
}

// SetTreeNotSync marks every node in the tree as non-sync, forcing a
// full rescan on the next browse pass. Used after a CorruptIndex
// error discards the saved snapshot.
func (t *IndexTree) SetTreeNotSync() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root != nil {
		t.root.SetAllHierarchyNotSync()
	}
}

// BrowseStatus is the outcome of one BrowseIterator.Next call.
type BrowseStatus int

const (
	// StatusNode means Next returned a node ready to be worked on.
	StatusNode BrowseStatus = iota
	// StatusWait is the WAIT_FOR_TASK sentinel of: every
	// remaining dirty node currently has a task assigned. The caller
	// should back off and retry.
	StatusWait
	// StatusDone means the tree is no longer dirty; there is nothing
	// left to browse.
	StatusDone
)

// BrowseIterator is a lazy, restartable depth-first traversal of an
// IndexTree's dirty nodes. Call Next repeatedly; the tree lock is held
// only for the duration of each Next call, not across calls, so
// concurrent tasks can mutate the tree between yields.
type BrowseIterator struct {
	tree         *IndexTree
	stack        []*Node
	passFoundAny bool
}

// Browse returns a new iterator over t. Iterators do not share state;
// a tree can have multiple independent iterators, though the
// scheduler only ever keeps one alive per tree.
func (t *IndexTree) Browse() *BrowseIterator {
	return &BrowseIterator{tree: t}
}

// Next returns the next node to sync. See BrowseStatus for the three
// possible outcomes.
func (it *BrowseIterator) Next() (*Node, BrowseStatus) {
	t := it.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if t.root == nil || !t.root.dirty {
			it.stack = nil
			return nil, StatusDone
		}
		if it.stack == nil {
			it.stack = []*Node{t.root}
			it.passFoundAny = false
		}
		if n := it.advance(); n != nil {
			it.passFoundAny = true
			return n, StatusNode
		}
		// The pass is exhausted: the stack emptied without advance
		// finding a free dirty node.
		if !it.passFoundAny {
			it.stack = nil
			return nil, StatusWait
		}
		it.stack = nil // Start a fresh pass on the next loop iteration.
	}
}

// advance pops nodes off the pass stack, pushing dirty children for
// later, until it finds a dirty node with no assigned task (which it
// returns) or the stack empties (nil).
func (it *BrowseIterator) advance() *Node {
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		for _, child := range n.children {
			if child.dirty {
				it.stack = append(it.stack, child)
			}
		}
		if !n.sync && n.task == nil {
			return n
		}
	}
	return nil
}

// RemoteHashes walks the tree collecting the remote hash of every
// file node that has one, keyed by path. Used to verify a legacy
// index load preserved the original flat map.
func (t *IndexTree) RemoteHashes() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.IsFile() {
			if _, remote := n.Hashes(); remote != "" {
				out[n.Path()] = remote
			}
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}
