package synctask

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nicolagi/bajoo-sync/internal/container"
	"github.com/nicolagi/bajoo-sync/internal/syncerr"
	"github.com/nicolagi/bajoo-sync/internal/syncindex"
)

// Env bundles the collaborators every file sync task needs: the owning
// tree (for locking and releasing nodes), the remote container, the
// encryption service, and the local container root the paths are
// relative to. One Env is shared by every task of one container.
type Env struct {
	Tree          *syncindex.IndexTree
	Container     container.Container
	Encryption    EncryptionService
	ContainerRoot string
	Recipients    []string
	Key           []byte
	Passphrase    string
}

func (e *Env) abs(node *syncindex.Node) string {
	p := node.Path()
	if p == "." {
		return e.ContainerRoot
	}
	return filepath.Join(e.ContainerRoot, p)
}

func (e *Env) releaseSync(node *syncindex.Node) {
	e.Tree.Lock()
	node.Release()
	e.Tree.Unlock()
}

func (e *Env) releaseDirty(node *syncindex.Node) {
	e.Tree.Lock()
	node.ReleaseFailed()
	e.Tree.Unlock()
}

// AddedLocalFilesTask uploads a file whose content changed locally.
type AddedLocalFilesTask struct {
	env  *Env
	node *syncindex.Node
}

func NewAddedLocalFilesTask(env *Env, node *syncindex.Node) *AddedLocalFilesTask {
	return &AddedLocalFilesTask{env: env, node: node}
}

func (t *AddedLocalFilesTask) Run() error {
	abs := t.env.abs(t.node)
	hash, err := sha256File(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing source file on creation path: prune silently.
			t.env.Tree.Lock()
			t.node.RemoveItself()
			t.env.Tree.Unlock()
			return nil
		}
		t.env.releaseDirty(t.node)
		return errors.Wrapf(err, "synctask: hash %s", abs)
	}
	localHash, remoteHash := t.node.Hashes()
	if hash == localHash && remoteHash != "" {
		t.env.releaseSync(t.node)
		return nil
	}
	f, err := os.Open(abs)
	if err != nil {
		t.env.releaseDirty(t.node)
		return errors.Wrapf(err, "synctask: open %s", abs)
	}
	defer func() { _ = f.Close() }()

	encrypted, err := t.env.Encryption.Encrypt(f, t.env.Recipients)
	if err != nil {
		t.env.releaseDirty(t.node)
		return errors.Wrap(err, "synctask: encrypt")
	}
	result, err := t.env.Container.Upload(t.node.Path(), encrypted)
	if err != nil {
		t.env.releaseDirty(t.node)
		return errors.Wrap(err, "synctask: upload")
	}
	t.env.Tree.Lock()
	_ = t.node.SetHashes(hash, result.NewRemoteHash)
	t.node.Release()
	t.env.Tree.Unlock()
	return nil
}

// RemovedLocalFilesTask propagates a local deletion to the container.
type RemovedLocalFilesTask struct {
	env  *Env
	node *syncindex.Node
}

func NewRemovedLocalFilesTask(env *Env, node *syncindex.Node) *RemovedLocalFilesTask {
	return &RemovedLocalFilesTask{env: env, node: node}
}

func (t *RemovedLocalFilesTask) Run() error {
	err := t.env.Container.Remove(t.node.Path())
	if err != nil && !errors.Is(err, container.ErrNotFound) {
		t.env.releaseDirty(t.node)
		return errors.Wrap(err, "synctask: remove")
	}
	t.env.Tree.Lock()
	t.node.RemoveItself()
	t.env.Tree.Unlock()
	return nil
}

// AddedRemoteFilesTask downloads a file that changed remotely (spec
// §4.6).
type AddedRemoteFilesTask struct {
	env        *Env
	node       *syncindex.Node
	remoteHash string
}

// NewAddedRemoteFilesTask builds the download task. remoteHash is the
// hash the remote change feed reported for this content (carried by
// the hint that triggered the task, since acquiring the node clears
// it); an empty value means the source never surfaced one, in which
// case the hash computed after decrypting the download stands in for
// it instead of leaving the node's state half-set.
func NewAddedRemoteFilesTask(env *Env, node *syncindex.Node, remoteHash string) *AddedRemoteFilesTask {
	return &AddedRemoteFilesTask{env: env, node: node, remoteHash: remoteHash}
}

func (t *AddedRemoteFilesTask) Run() error {
	stream, err := t.env.Container.Download(t.node.Path())
	if err != nil {
		t.env.releaseDirty(t.node)
		return errors.Wrap(err, "synctask: download")
	}
	defer func() { _ = stream.Close() }()

	plaintext, err := t.env.Encryption.Decrypt(stream, t.env.Key, t.env.Passphrase)
	if err != nil {
		t.env.releaseDirty(t.node)
		return errors.Wrap(err, "synctask: decrypt")
	}
	abs := t.env.abs(t.node)
	if err := writeFileAtomically(abs, plaintext); err != nil {
		t.env.releaseDirty(t.node)
		return err
	}
	hash, err := sha256File(abs)
	if err != nil {
		t.env.releaseDirty(t.node)
		return errors.Wrapf(err, "synctask: hash %s", abs)
	}
	remoteHash := t.remoteHash
	if remoteHash == "" {
		remoteHash = hash
	}
	t.env.Tree.Lock()
	_ = t.node.SetHashes(hash, remoteHash)
	t.node.Release()
	t.env.Tree.Unlock()
	return nil
}

// RemovedRemoteFilesTask propagates a remote deletion to the local
// filesystem.
type RemovedRemoteFilesTask struct {
	env  *Env
	node *syncindex.Node
}

func NewRemovedRemoteFilesTask(env *Env, node *syncindex.Node) *RemovedRemoteFilesTask {
	return &RemovedRemoteFilesTask{env: env, node: node}
}

func (t *RemovedRemoteFilesTask) Run() error {
	abs := t.env.abs(t.node)
	err := os.Remove(abs)
	if err != nil && !os.IsNotExist(err) {
		t.env.releaseDirty(t.node)
		return errors.Wrapf(err, "synctask: remove %s", abs)
	}
	t.env.Tree.Lock()
	t.node.RemoveItself()
	t.env.Tree.Unlock()
	return nil
}

// MovedLocalFilesTask replays a local rename on the container, which
// has no native rename operation: delete the old path, upload the new
// one. It acquires both the source and destination nodes.
type MovedLocalFilesTask struct {
	env         *Env
	source, dest *syncindex.Node
}

func NewMovedLocalFilesTask(env *Env, source, dest *syncindex.Node) *MovedLocalFilesTask {
	return &MovedLocalFilesTask{env: env, source: source, dest: dest}
}

func (t *MovedLocalFilesTask) Run() error {
	err := t.env.Container.Remove(t.source.Path())
	if err != nil && !errors.Is(err, container.ErrNotFound) {
		t.releaseBothDirty()
		return errors.Wrap(err, "synctask: remove moved source")
	}

	abs := t.env.abs(t.dest)
	hash, err := sha256File(abs)
	if err != nil {
		t.releaseBothDirty()
		return errors.Wrapf(err, "synctask: hash %s", abs)
	}
	f, err := os.Open(abs)
	if err != nil {
		t.releaseBothDirty()
		return errors.Wrapf(err, "synctask: open %s", abs)
	}
	defer func() { _ = f.Close() }()
	encrypted, err := t.env.Encryption.Encrypt(f, t.env.Recipients)
	if err != nil {
		t.releaseBothDirty()
		return errors.Wrap(err, "synctask: encrypt")
	}
	result, err := t.env.Container.Upload(t.dest.Path(), encrypted)
	if err != nil {
		t.releaseBothDirty()
		return errors.Wrap(err, "synctask: upload moved dest")
	}

	t.env.Tree.Lock()
	t.source.RemoveItself()
	_ = t.dest.SetHashes(hash, result.NewRemoteHash)
	t.dest.Release()
	t.env.Tree.Unlock()
	return nil
}

func (t *MovedLocalFilesTask) releaseBothDirty() {
	t.env.Tree.Lock()
	t.source.ReleaseFailed()
	t.dest.ReleaseFailed()
	t.env.Tree.Unlock()
}

// quarantineClassify maps a task error to its syncerr.Kind. It has no
// callers: cmd/bajoo-syncd counts every task failure toward quarantine,
// whatever its kind.
func quarantineClassify(err error) syncerr.Kind {
	return syncerr.Classify(err)
}
