package syncindex

import (
	"encoding/json"
	"fmt"
)

// diskNode is the v2 on-disk shape of one node: FILE nodes carry an
// optional hash pair, FOLDER nodes never carry state (their existence
// is re-derived from the filesystem on the next scan).
type diskNode struct {
	Type     string               `json:"type"`
	State    *diskFileState       `json:"state,omitempty"`
	Children map[string]*diskNode `json:"children,omitempty"`
}

type diskFileState struct {
	LocalHash  string `json:"local_hash"`
	RemoteHash string `json:"remote_hash"`
}

type diskTree struct {
	Version int       `json:"version"`
	Root    *diskNode `json:"root"`
}

// ExportData serializes the tree to the v2 JSON snapshot format (spec
// §6): a typed node tree carrying only content hashes, no hints and
// no sync/dirty flags, since those are meaningless across a restart.
func (t *IndexTree) ExportData() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dt := diskTree{Version: 2, Root: exportNode(t.root)}
	return json.Marshal(dt)
}

func exportNode(n *Node) *diskNode {
	if n == nil {
		return nil
	}
	dn := &diskNode{}
	if n.IsFile() {
		dn.Type = "FILE"
		local, remote := n.Hashes()
		if local != "" || remote != "" {
			dn.State = &diskFileState{LocalHash: local, RemoteHash: remote}
		}
	} else {
		dn.Type = "FOLDER"
	}
	if len(n.children) > 0 {
		dn.Children = make(map[string]*diskNode, len(n.children))
		for name, child := range n.children {
			dn.Children[name] = exportNode(child)
		}
	}
	return dn
}

// Load replaces the tree's contents from a saved snapshot. It accepts
// both the v2 format produced by ExportData and the legacy flat map
// format (path -> [local_hash, remote_hash]) carried over from the
// original index, lifting the latter into an equivalent node
// hierarchy. Every node produced this way starts sync,
// since the snapshot is by definition the last known-good state; a
// subsequent widescan or CorruptIndex recovery is what marks it dirty
// again.
func (t *IndexTree) Load(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("syncindex: load: %w", err)
	}
	if _, ok := probe["version"]; ok {
		return t.loadV2(data)
	}
	return t.loadLegacy(data)
}

func (t *IndexTree) loadV2(data []byte) error {
	var dt diskTree
	if err := json.Unmarshal(data, &dt); err != nil {
		return fmt.Errorf("syncindex: load v2: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if dt.Root == nil {
		t.root = NewFolderNode(".")
		return nil
	}
	t.root = importNode(".", dt.Root)
	return nil
}

func importNode(name string, dn *diskNode) *Node {
	var n *Node
	if dn.Type == "FILE" {
		n = NewFileNode(name)
		if dn.State != nil {
			_ = n.SetHashes(dn.State.LocalHash, dn.State.RemoteHash)
		}
	} else {
		n = NewFolderNode(name)
	}
	n.SetSync(true)
	for childName, childDN := range dn.Children {
		n.AddChild(importNode(childName, childDN))
	}
	return n
}

func (t *IndexTree) loadLegacy(data []byte) error {
	var flat map[string][2]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("syncindex: load legacy: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = NewFolderNode(".")
	for nodePath, hashes := range flat {
		leaf := t.GetOrCreateNodeByPathLocked(nodePath, func(leafName string) *Node { return NewFileNode(leafName) })
		if err := leaf.SetHashes(hashes[0], hashes[1]); err != nil {
			return fmt.Errorf("syncindex: load legacy: %s: %w", nodePath, err)
		}
		leaf.SetSync(true)
		for dir := leaf.Parent(); dir != nil; dir = dir.Parent() {
			dir.SetSync(true)
		}
	}
	return nil
}
