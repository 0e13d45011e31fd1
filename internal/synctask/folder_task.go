package synctask

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nicolagi/bajoo-sync/internal/syncindex"
	"github.com/nicolagi/bajoo-sync/internal/synchint"
)

var log = logrus.WithField("pkg", "synctask")

// FolderTask reconciles one directory listing with its FolderNode. It
// never modifies descendants directly: it only seeds hints on newly
// discovered or vanished children, leaving subsequent sync passes to
// act on them.
type FolderTask struct {
	tree          *syncindex.IndexTree
	hints         *synchint.Builder
	node          *syncindex.Node
	containerRoot string
	excludeHidden bool
	windowsClass  bool

	// localHint is the snapshot of node.LocalHint() taken before
	// Acquire cleared it, mirroring the Python task's
	// self.local_hint = node.local_hint captured in __init__.
	localHint syncindex.Hint
}

// NewFolderTask builds a task for node, capturing its current local
// hint before the caller acquires it.
func NewFolderTask(tree *syncindex.IndexTree, hints *synchint.Builder, node *syncindex.Node, containerRoot string, excludeHidden bool) *FolderTask {
	return &FolderTask{
		tree:          tree,
		hints:         hints,
		node:          node,
		containerRoot: containerRoot,
		excludeHidden: excludeHidden,
		windowsClass:  runtime.GOOS == "windows",
		localHint:     node.LocalHint(),
	}
}

// Run executes the task end to end: list (or remove) the directory,
// diff the result against the node's children under the tree lock,
// then release the node.
func (t *FolderTask) Run() error {
	exists, files, folders, err := t.execute()
	if err != nil {
		t.tree.Lock()
		t.node.Release()
		t.tree.Unlock()
		return err
	}
	t.tree.Lock()
	t.diffAndApply(exists, files, folders)
	t.node.Release()
	t.tree.Unlock()
	return nil
}

func (t *FolderTask) absPath() string {
	p := t.node.Path()
	if p == "." {
		return t.containerRoot
	}
	return filepath.Join(t.containerRoot, p)
}

// execute lists the directory, classifying the outcome: list
// succeeded (exists), directory is gone (!exists, nil err), or a
// different, unexpected error occurred. The caller decides what
// hints to seed from the result.
func (t *FolderTask) execute() (exists bool, files, folders []string, err error) {
	abs := t.absPath()
	if !t.node.FolderExists() {
		if _, isModified := t.localHint.(syncindex.ModifiedHint); !isModified {
			rmErr := os.Remove(abs)
			switch {
			case rmErr == nil:
				return false, nil, nil, nil
			case os.IsNotExist(rmErr):
				return false, nil, nil, nil
			case isNotEmpty(rmErr):
				// Fall through to listing: something reappeared under it.
			default:
				return false, nil, nil, errors.Wrapf(rmErr, "synctask: remove %s", abs)
			}
		}
	}
	found, files, folders, err := t.listDir(abs)
	if err != nil {
		return false, nil, nil, err
	}
	return found, files, folders, nil
}

func isNotEmpty(err error) bool {
	perr, ok := err.(*os.PathError)
	return ok && perr.Err.Error() == "directory not empty"
}

// listDir implements list_dir: apply the allowed-path and
// hidden-file filters, then classify each surviving entry. found is
// false if abs does not exist at all.
func (t *FolderTask) listDir(abs string) (found bool, files, folders []string, err error) {
	entries, err := ioutil.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil, nil
		}
		return false, nil, nil, errors.Wrapf(err, "synctask: readdir %s", abs)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !IsPathAllowed(name, t.windowsClass) {
			continue
		}
		if t.excludeHidden && IsHidden(name) {
			continue
		}
		fi, statErr := os.Stat(filepath.Join(abs, name))
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue // Vanished between ReadDir and Stat.
			}
			return false, nil, nil, errors.Wrapf(statErr, "synctask: stat %s", name)
		}
		switch {
		case fi.Mode().IsRegular():
			files = append(files, name)
		case fi.IsDir():
			folders = append(folders, name)
		}
	}
	return true, files, folders, nil
}

// diffAndApply implements diff_node_and_apply_result. The tree lock
// must already be held by the caller.
func (t *FolderTask) diffAndApply(exists bool, files, folders []string) {
	t.node.SetFolderExists(exists)

	present := make(map[string]bool, len(files)+len(folders))
	for _, name := range files {
		present[name] = true
	}
	for _, name := range folders {
		present[name] = true
	}

	for name, child := range t.node.Children() {
		if !present[name] {
			t.hints.ApplyDeleted(child, syncindex.ScopeLocal)
			log.WithField("path", child.Path()).Debug("vanished child")
		}
	}

	for _, name := range files {
		if t.node.ChildByName(name) != nil {
			continue
		}
		child := syncindex.NewFileNode(name)
		t.node.AddChild(child)
		t.hints.ApplyModified(child, syncindex.ScopeLocal, nil)
	}
	for _, name := range folders {
		if t.node.ChildByName(name) != nil {
			continue
		}
		child := syncindex.NewFolderNode(name)
		t.node.AddChild(child)
		t.hints.ApplyModified(child, syncindex.ScopeLocal, nil)
	}
}
