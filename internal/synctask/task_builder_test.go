package synctask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/bajoo-sync/internal/synchint"
	"github.com/nicolagi/bajoo-sync/internal/syncindex"
)

func newBuilderTestTree(t *testing.T) (*syncindex.IndexTree, *synchint.Builder) {
	t.Helper()
	tree := syncindex.NewIndexTree()
	return tree, synchint.New(tree)
}

func TestBuildAndAcquireFolderNode(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	node := tree.GetOrCreateNodeByPath("sub", syncindex.NewFolderNode)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, node)

	assert.IsType(t, &FolderTask{}, task)
	assert.NotNil(t, node.Task())
}

func TestBuildAndAcquirePrefersLocalModifiedHint(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	node := tree.GetOrCreateNodeByPath("a.txt", syncindex.NewFileNode)
	hints.ApplyModified(node, syncindex.ScopeLocal, nil)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, node)

	assert.IsType(t, &AddedLocalFilesTask{}, task)
	assert.Nil(t, node.LocalHint())
}

func TestBuildAndAcquireLocalDeletedHint(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	node := tree.GetOrCreateNodeByPath("a.txt", syncindex.NewFileNode)
	require.NoError(t, node.SetHashes("h1", "h2"))
	hints.ApplyDeleted(node, syncindex.ScopeLocal)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, node)

	assert.IsType(t, &RemovedLocalFilesTask{}, task)
}

func TestBuildAndAcquireFallsBackToRemoteModifiedHint(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	node := tree.GetOrCreateNodeByPath("a.txt", syncindex.NewFileNode)
	hints.ApplyModified(node, syncindex.ScopeRemote, "remotehash")
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, node)

	got, ok := task.(*AddedRemoteFilesTask)
	require.True(t, ok)
	assert.Equal(t, "remotehash", got.remoteHash)
	assert.Nil(t, node.RemoteHint())
}

func TestBuildAndAcquireFallsBackToRemoteDeletedHint(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	node := tree.GetOrCreateNodeByPath("a.txt", syncindex.NewFileNode)
	require.NoError(t, node.SetHashes("h1", "h2"))
	hints.ApplyDeleted(node, syncindex.ScopeRemote)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, node)

	assert.IsType(t, &RemovedRemoteFilesTask{}, task)
}

func TestBuildAndAcquireNoHintFallsBackToLocalAdd(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	node := tree.GetOrCreateNodeByPath("a.txt", syncindex.NewFileNode)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, node)

	assert.IsType(t, &AddedLocalFilesTask{}, task)
}

func TestBuildAndAcquireSourceMoveResolvesToPartnerNode(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	src := tree.GetOrCreateNodeByPath("src.txt", syncindex.NewFileNode)
	dst := tree.GetOrCreateNodeByPath("dst.txt", syncindex.NewFileNode)
	hints.ApplyMove(src, dst, syncindex.ScopeLocal)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, src)

	got, ok := task.(*MovedLocalFilesTask)
	require.True(t, ok)
	assert.Equal(t, src, got.source)
	assert.Equal(t, dst, got.dest)
	assert.Nil(t, src.LocalHint())
	assert.Nil(t, dst.LocalHint())
}

func TestBuildAndAcquireDestMoveResolvesToPartnerNode(t *testing.T) {
	tree, hints := newBuilderTestTree(t)
	src := tree.GetOrCreateNodeByPath("src.txt", syncindex.NewFileNode)
	dst := tree.GetOrCreateNodeByPath("dst.txt", syncindex.NewFileNode)
	hints.ApplyMove(src, dst, syncindex.ScopeLocal)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, dst)

	got, ok := task.(*MovedLocalFilesTask)
	require.True(t, ok)
	assert.Equal(t, src, got.source)
	assert.Equal(t, dst, got.dest)
}

func TestBuildAndAcquireBreaksCoupledRemoteHintOnNonMoveTask(t *testing.T) {
	// S5-shaped scenario: z has remote SourceMove(x), x has remote
	// DestMove(z). x then picks up a local Modified hint, so
	// BuildAndAcquire must break the coupled remote pair on x before
	// acquiring it for a plain local-add task, leaving z's remote hint
	// cleared too (not just x's, which Acquire would clear anyway).
	tree, hints := newBuilderTestTree(t)
	x := tree.GetOrCreateNodeByPath("x.txt", syncindex.NewFileNode)
	z := tree.GetOrCreateNodeByPath("z.txt", syncindex.NewFileNode)
	hints.ApplyMove(z, x, syncindex.ScopeRemote)
	hints.ApplyModified(x, syncindex.ScopeLocal, nil)
	env := &Env{Tree: tree}
	b := NewBuilder(env, hints, true)

	task := b.BuildAndAcquire(tree, x)

	assert.IsType(t, &AddedLocalFilesTask{}, task)
	assert.Nil(t, z.RemoteHint(), "the move partner's remote hint must be broken, not left dangling")
}
