// Command bajoo-syncd runs one sync daemon: it loads its index
// snapshot, watches the container root for filesystem changes, turns
// them into hints, dispatches tasks against the remote container
// through a bounded worker pool, and periodically persists the index
// again. Wiring follows cmd/musclefs/musclefs.go's shape: flag
// parsing, a gops diagnostics agent, and a signal handler that flushes
// state before exiting.
package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/nicolagi/bajoo-sync/internal/container"
	"github.com/nicolagi/bajoo-sync/internal/cryptoworker"
	"github.com/nicolagi/bajoo-sync/internal/remotefeed"
	"github.com/nicolagi/bajoo-sync/internal/synchint"
	"github.com/nicolagi/bajoo-sync/internal/syncconfig"
	"github.com/nicolagi/bajoo-sync/internal/syncexec"
	"github.com/nicolagi/bajoo-sync/internal/syncindex"
	"github.com/nicolagi/bajoo-sync/internal/syncsave"
	"github.com/nicolagi/bajoo-sync/internal/syncsched"
	"github.com/nicolagi/bajoo-sync/internal/synctask"
	"github.com/nicolagi/bajoo-sync/internal/watcher"
)

const (
	pollInterval       = 2 * time.Second
	remotePollInterval = 10 * time.Second
	dispatchIdle       = 200 * time.Millisecond
	executorSize       = 4
	executorQueue      = 64
)

// cryptoWorkerFlag re-execs this same binary as the encryption worker
// child process: Spawn below passes it back on argv so RunWorkerProcess
// becomes the child's entire main body, the same "one binary, two
// roles" trick avoids shipping a second executable for something this
// small.
const cryptoWorkerFlag = "-crypto-worker-socket"

func main() {
	socketFlag := flag.String("crypto-worker-socket", "", "internal: run as the encryption worker process listening on this socket")
	base := flag.String("base", os.ExpandEnv("$HOME/lib/bajoo-sync"), "Base directory for configuration, logs and the index cache")
	flag.Parse()

	if *socketFlag != "" {
		if err := cryptoworker.RunWorkerProcess(*socketFlag, cryptoworker.NullKeyring{}); err != nil {
			log.Fatalf("crypto worker: %v", err)
		}
		return
	}

	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := syncconfig.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}

	remote, err := newContainer(cfg)
	if err != nil {
		log.Fatalf("Could not create remote container: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	socketPath := filepath.Join(cfg.CacheDirectory, ".bajoo-crypto.sock")
	cryptoClient, cryptoProc, err := cryptoworker.Spawn(ctx, os.Args[0], socketPath, cryptoWorkerFlag, socketPath)
	if err != nil {
		log.Fatalf("Could not start encryption worker: %v", err)
	}
	defer func() { _ = cryptoClient.Close() }()

	tree := syncindex.NewIndexTree()
	if data, err := ioutil.ReadFile(cfg.IndexFilePath()); err == nil {
		if err := tree.Load(data); err != nil {
			log.Printf("Could not load index snapshot %q, starting fresh: %v", cfg.IndexFilePath(), err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Could not read index snapshot %q: %v", cfg.IndexFilePath(), err)
	}
	tree.SetTreeNotSync()

	hints := synchint.New(tree)
	env := &synctask.Env{
		Tree:          tree,
		Container:     remote,
		Encryption:    cryptoClient,
		ContainerRoot: cfg.ContainerRoot,
	}
	builder := synctask.NewBuilder(env, hints, cfg.ExcludeHiddenFiles)
	quarantine := synctask.NewQuarantine()
	quarantine.Duration = cfg.QuarantineDuration
	errAggregator := synctask.NewErrorAggregator(cfg.QuarantineDuration)

	scheduler := syncsched.New()
	scheduler.AddTree(tree)

	saver := syncsave.New(tree, cfg.IndexFilePath())

	executor := syncexec.New(executorSize, executorQueue)
	defer executor.Stop()

	poller := watcher.NewPoller(cfg.ContainerRoot, pollInterval)
	defer func() { _ = poller.Close() }()

	remoteFeed := remotefeed.NewPoller(remote, remotePollInterval)
	defer func() { _ = remoteFeed.Close() }()

	go watchEvents(ctx, tree, hints, saver, poller)
	go watchRemoteEvents(ctx, tree, hints, saver, remoteFeed)
	go dispatchLoop(ctx, scheduler, builder, executor, quarantine, errAggregator, saver)

	log.Print("Awaiting a signal to flush and exit.")
	for sig := range sigc {
		log.Printf("Got signal %q, flushing before exiting.", sig)
		break
	}
	cancel()
	saver.Stop()
	if cryptoProc != nil {
		_ = cryptoProc.Process.Kill()
	}
	agent.Close()
}

func newContainer(cfg *syncconfig.C) (container.Container, error) {
	switch cfg.Storage {
	case "s3":
		return container.NewS3Container(container.S3Config{
			Region:  cfg.S3Region,
			Profile: cfg.S3Profile,
			Bucket:  cfg.S3Bucket,
			Prefix:  cfg.S3Prefix,
		})
	case "memory":
		return container.NewInMemory(), nil
	default:
		return nil, errUnknownStorage(cfg.Storage)
	}
}

type errUnknownStorage string

func (e errUnknownStorage) Error() string { return "unknown storage kind: " + string(e) }

// watchEvents turns raw filesystem events into hints against tree,
// the same translation FolderTask.diffAndApply does for a directory
// listing, just driven by the poller instead of a rescan.
func watchEvents(ctx context.Context, tree *syncindex.IndexTree, hints *synchint.Builder, saver *syncsave.Saver, poller *watcher.Poller) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-poller.Events():
			if !ok {
				return
			}
			applyEvent(tree, hints, ev)
			saver.TriggerSave()
		case err, ok := <-poller.Errors():
			if !ok {
				continue
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func applyEvent(tree *syncindex.IndexTree, hints *synchint.Builder, ev watcher.Event) {
	tree.Lock()
	defer tree.Unlock()
	switch ev.Kind {
	case watcher.Created, watcher.Modified:
		node := tree.GetOrCreateNodeByPathLocked(ev.Path, syncindex.NewFileNode)
		hints.ApplyModified(node, syncindex.ScopeLocal, nil)
	case watcher.Deleted:
		if node := tree.GetNodeByPathLocked(ev.Path); node != nil {
			hints.ApplyDeleted(node, syncindex.ScopeLocal)
		}
	case watcher.Moved:
		dest := tree.GetOrCreateNodeByPathLocked(ev.Path, syncindex.NewFileNode)
		src := tree.GetNodeByPathLocked(ev.OldPath)
		hints.ApplyMove(src, dest, syncindex.ScopeLocal)
	}
}

// watchRemoteEvents turns change-feed events into remote-scope hints,
// the mirror image of watchEvents on the local side.
func watchRemoteEvents(ctx context.Context, tree *syncindex.IndexTree, hints *synchint.Builder, saver *syncsave.Saver, feed remotefeed.Feed) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed.Events():
			if !ok {
				return
			}
			applyRemoteEvent(tree, hints, ev)
			saver.TriggerSave()
		case err, ok := <-feed.Errors():
			if !ok {
				continue
			}
			log.Printf("remote feed error: %v", err)
		}
	}
}

func applyRemoteEvent(tree *syncindex.IndexTree, hints *synchint.Builder, ev remotefeed.Event) {
	tree.Lock()
	defer tree.Unlock()
	switch ev.Kind {
	case remotefeed.Modified:
		node := tree.GetOrCreateNodeByPathLocked(ev.Path, syncindex.NewFileNode)
		hints.ApplyModified(node, syncindex.ScopeRemote, ev.RemoteHash)
	case remotefeed.Deleted:
		if node := tree.GetNodeByPathLocked(ev.Path); node != nil {
			hints.ApplyDeleted(node, syncindex.ScopeRemote)
		}
	}
}

// dispatchLoop is the sync coordinator: pull a dirty node, build and
// acquire its task, run it on the executor, and feed the outcome back
// into quarantine and error-aggregation bookkeeping.
func dispatchLoop(
	ctx context.Context,
	scheduler *syncsched.Scheduler,
	builder *synctask.Builder,
	executor *syncexec.Executor,
	quarantine *synctask.Quarantine,
	errAggregator *synctask.ErrorAggregator,
	saver *syncsave.Saver,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tree, node := scheduler.GetNode()
		if node == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(dispatchIdle):
			}
			continue
		}
		path := node.Path()
		if quarantine.IsQuarantined(path) {
			continue
		}

		tree.Lock()
		task := builder.BuildAndAcquire(tree, node)
		tree.Unlock()
		_, err := executor.Submit(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, task.Run()
		})
		if err != nil {
			quarantine.RecordFailure(path)
			errAggregator.Record(path, err)
			log.Printf("task for %q failed: %v", path, err)
		} else {
			quarantine.RecordSuccess(path)
		}
		saver.TriggerSave()
	}
}
