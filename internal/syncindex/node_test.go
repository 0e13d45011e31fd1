package syncindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodePathRootAndNested(t *testing.T) {
	root := NewFolderNode(".")
	assert.Equal(t, ".", root.Path())

	docs := NewFolderNode("docs")
	root.AddChild(docs)
	readme := NewFileNode("readme.txt")
	docs.AddChild(readme)

	assert.Equal(t, "docs", docs.Path())
	assert.Equal(t, "docs/readme.txt", readme.Path())
}

func TestSetHashesRejectsHalfPairs(t *testing.T) {
	n := NewFileNode("a")
	require.NoError(t, n.SetHashes("h1", "h2"))
	local, remote := n.Hashes()
	assert.Equal(t, "h1", local)
	assert.Equal(t, "h2", remote)

	err := n.SetHashes("h1", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetHashesClearsOnEmptyPair(t *testing.T) {
	n := NewFileNode("a")
	require.NoError(t, n.SetHashes("h1", "h2"))
	require.NoError(t, n.SetHashes("", ""))
	assert.False(t, n.Exists())
}

func TestDirtyPropagationUpAndDown(t *testing.T) {
	root := NewFolderNode(".")
	root.SetSync(true)
	child := NewFolderNode("a")
	root.AddChild(child)

	// A fresh folder node is dirty, so attaching it marks the root
	// dirty too.
	assert.True(t, root.Dirty())

	child.SetSync(true)
	assert.False(t, root.Dirty(), "root should clean once its only child is sync")

	child.SetSync(false)
	assert.True(t, root.Dirty())
	assert.True(t, child.Dirty())
}

func TestFolderNodeDefaultsToExisting(t *testing.T) {
	f := NewFolderNode("x")
	assert.True(t, f.FolderExists())
	f.SetFolderExists(false)
	assert.False(t, f.FolderExists())
}

func TestAcquireClearsHintsReleaseFailedDoesNot(t *testing.T) {
	n := NewFileNode("a")
	n.SetLocalHint(ModifiedHint{})
	n.Acquire("marker")
	assert.Nil(t, n.LocalHint())
	assert.Equal(t, "marker", n.Task())

	n.SetLocalHint(ModifiedHint{})
	n.Acquire("marker2")
	n.ReleaseFailed()
	assert.Nil(t, n.Task())
	assert.Nil(t, n.LocalHint(), "Acquire already cleared the hint before the task ran")
}

func TestReleasePrunesAbsentChildlessNode(t *testing.T) {
	root := NewFolderNode(".")
	child := NewFileNode("gone")
	root.AddChild(child)
	child.Acquire("marker")

	child.Release()

	assert.Nil(t, root.ChildByName("gone"))
}

func TestReleaseKeepsNodeWithPendingHint(t *testing.T) {
	root := NewFolderNode(".")
	child := NewFileNode("f")
	root.AddChild(child)
	child.Acquire("marker")
	child.SetRemoteHint(ModifiedHint{})

	child.Release()

	assert.NotNil(t, root.ChildByName("f"))
	assert.False(t, child.Sync())
}
