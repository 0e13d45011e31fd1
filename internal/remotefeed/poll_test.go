package remotefeed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nicolagi/bajoo-sync/internal/container"
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

func TestPollerEmitsModifiedForNewAndChangedEntries(t *testing.T) {
	c := container.NewInMemory()
	p := NewPoller(c, 10*time.Millisecond)
	defer func() { require.NoError(t, p.Close()) }()
	time.Sleep(20 * time.Millisecond) // let the initial listing prime before the first change

	_, err := c.Upload("a.txt", strings.NewReader("v1"))
	require.NoError(t, err)

	ev := recvEvent(t, p.Events())
	require.Equal(t, Modified, ev.Kind)
	require.Equal(t, "a.txt", ev.Path)
	require.NotEmpty(t, ev.RemoteHash)

	firstHash := ev.RemoteHash
	_, err = c.Upload("a.txt", strings.NewReader("v2"))
	require.NoError(t, err)

	ev = recvEvent(t, p.Events())
	require.Equal(t, Modified, ev.Kind)
	require.NotEqual(t, firstHash, ev.RemoteHash)
}

func TestPollerEmitsDeletedForRemovedEntries(t *testing.T) {
	c := container.NewInMemory()
	_, err := c.Upload("a.txt", strings.NewReader("v1"))
	require.NoError(t, err)

	p := NewPoller(c, 10*time.Millisecond)
	defer func() { require.NoError(t, p.Close()) }()
	time.Sleep(20 * time.Millisecond) // let the initial listing prime before the first change

	require.NoError(t, c.Remove("a.txt"))

	ev := recvEvent(t, p.Events())
	require.Equal(t, Deleted, ev.Kind)
	require.Equal(t, "a.txt", ev.Path)
}
