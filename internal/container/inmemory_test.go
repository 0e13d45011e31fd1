package container

import (
	"bytes"
	"io/ioutil"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryUploadDownloadRoundTrip(t *testing.T) {
	c := NewInMemory()

	result, err := c.Upload("a/b.txt", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.NotEmpty(t, result.NewRemoteHash)

	rc, err := c.Download("a/b.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := ioutil.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestInMemoryDownloadMissingReturnsNotFound(t *testing.T) {
	c := NewInMemory()
	_, err := c.Download("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryRemoveMissingReturnsNotFound(t *testing.T) {
	c := NewInMemory()
	err := c.Remove("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryListFiles(t *testing.T) {
	c := NewInMemory()
	r1, err := c.Upload("a.txt", bytes.NewReader([]byte("1")))
	require.NoError(t, err)
	r2, err := c.Upload("b.txt", bytes.NewReader([]byte("2")))
	require.NoError(t, err)

	entries, err := c.ListFiles()
	require.NoError(t, err)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	want := []FileEntry{
		{Path: "a.txt", RemoteHash: r1.NewRemoteHash},
		{Path: "b.txt", RemoteHash: r2.NewRemoteHash},
	}
	if diff := cmp.Diff(want, entries, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ListFiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestInMemorySameContentSameHash(t *testing.T) {
	c := NewInMemory()
	r1, err := c.Upload("a.txt", bytes.NewReader([]byte("same")))
	require.NoError(t, err)
	r2, err := c.Upload("b.txt", bytes.NewReader([]byte("same")))
	require.NoError(t, err)
	assert.Equal(t, r1.NewRemoteHash, r2.NewRemoteHash)
}
