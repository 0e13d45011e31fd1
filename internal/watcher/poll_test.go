package watcher

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPollerEmitsCreatedForNewFile(t *testing.T) {
	root := t.TempDir()
	p := NewPoller(root, 10*time.Millisecond)
	defer func() { require.NoError(t, p.Close()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))

	ev := recvEvent(t, p.Events())
	require.Equal(t, Created, ev.Kind)
	require.Equal(t, "a.txt", ev.Path)
}

func TestPollerEmitsModifiedForChangedContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))

	p := NewPoller(root, 10*time.Millisecond)
	defer func() { require.NoError(t, p.Close()) }()

	// Ensure the new mtime/size differ from whatever the priming poll saw.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "a.txt"), []byte("a longer body"), 0644))

	ev := recvEvent(t, p.Events())
	require.Equal(t, Modified, ev.Kind)
	require.Equal(t, "a.txt", ev.Path)
}

func TestPollerEmitsDeletedForRemovedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))

	p := NewPoller(root, 10*time.Millisecond)
	defer func() { require.NoError(t, p.Close()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))

	ev := recvEvent(t, p.Events())
	require.Equal(t, Deleted, ev.Kind)
	require.Equal(t, "a.txt", ev.Path)
}

func TestPollerIgnoresDirectoriesButRecursesIntoThem(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))

	p := NewPoller(root, 10*time.Millisecond)
	defer func() { require.NoError(t, p.Close()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "sub", "nested.txt"), []byte("x"), 0644))

	ev := recvEvent(t, p.Events())
	require.Equal(t, Created, ev.Kind)
	require.Equal(t, "sub/nested.txt", ev.Path)
}
