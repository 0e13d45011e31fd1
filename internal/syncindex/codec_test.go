package syncindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportLoadRoundTrip(t *testing.T) {
	tree := NewIndexTree()
	f := tree.GetOrCreateNodeByPath("dir/file.txt", NewFileNode)
	require.NoError(t, f.SetHashes("localhash", "remotehash"))
	tree.GetOrCreateNodeByPath("dir/empty.txt", NewFileNode)

	data, err := tree.ExportData()
	require.NoError(t, err)

	loaded := NewIndexTree()
	require.NoError(t, loaded.Load(data))

	node := loaded.GetNodeByPath("dir/file.txt")
	require.NotNil(t, node)
	local, remote := node.Hashes()
	assert.Equal(t, "localhash", local)
	assert.Equal(t, "remotehash", remote)
	assert.True(t, node.Sync(), "loaded nodes start sync")

	empty := loaded.GetNodeByPath("dir/empty.txt")
	require.NotNil(t, empty)
	assert.False(t, empty.Exists())
}

func TestLoadLegacyFlatMap(t *testing.T) {
	legacy := []byte(`{"a/b.txt": ["localhash", "remotehash"], "c.txt": ["h1", "h2"]}`)

	tree := NewIndexTree()
	require.NoError(t, tree.Load(legacy))

	node := tree.GetNodeByPath("a/b.txt")
	require.NotNil(t, node)
	local, remote := node.Hashes()
	assert.Equal(t, "localhash", local)
	assert.Equal(t, "remotehash", remote)

	hashes := tree.RemoteHashes()
	assert.Equal(t, "remotehash", hashes["a/b.txt"])
	assert.Equal(t, "h2", hashes["c.txt"])
}

func TestLoadDetectsFormatByVersionKey(t *testing.T) {
	v2 := []byte(`{"version":2,"root":{"type":"FOLDER"}}`)
	tree := NewIndexTree()
	require.NoError(t, tree.Load(v2))
	assert.True(t, tree.GetNodeByPath(".").IsFolder())
}
