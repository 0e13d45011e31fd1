package syncsave

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/bajoo-sync/internal/syncindex"
)

func TestTriggerSaveDebouncesToOneWrite(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "index.json")
	tree := syncindex.NewIndexTree()
	s := New(tree, dest)

	for i := 0; i < 20; i++ {
		s.TriggerSave()
		time.Sleep(5 * time.Millisecond)
	}

	// The timer first fires 1s after the first trigger, sees the last
	// trigger (about 0.1s) less than 1s old and rearms; the write lands
	// at about 2s.
	time.Sleep(2200 * time.Millisecond)

	data, err := ioutil.ReadFile(dest)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestStopForcesFinalSaveWhenPending(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "index.json")
	tree := syncindex.NewIndexTree()
	s := New(tree, dest)

	s.TriggerSave()
	s.Stop()

	data, err := ioutil.ReadFile(dest)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestTriggerSaveAfterStopIsANoop(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "index.json")
	tree := syncindex.NewIndexTree()
	s := New(tree, dest)
	s.Stop() // nothing was pending, so this does not write either

	s.TriggerSave()
	time.Sleep(1200 * time.Millisecond)

	_, err := ioutil.ReadFile(dest)
	assert.True(t, os.IsNotExist(err), "a stopped saver must not arm a new timer or write")
}
