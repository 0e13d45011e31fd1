package cryptoworker

import (
	"context"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Spawn launches executable with args as a child process and dials it
// once its Unix socket at socketPath appears, retrying briefly since
// the child needs a moment to bind and listen. The child is expected
// to call RunWorkerProcess(socketPath, keyring) as its main body.
func Spawn(ctx context.Context, executable, socketPath string, args ...string) (*Client, *exec.Cmd, error) {
	_ = os.Remove(socketPath)
	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, errors.Wrap(err, "cryptoworker: start worker process")
	}

	deadline := time.Now().Add(5 * time.Second)
	var client *Client
	for time.Now().Before(deadline) {
		c, err := Dial("unix", socketPath)
		if err == nil {
			client = c
			break
		}
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return nil, nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	if client == nil {
		_ = cmd.Process.Kill()
		return nil, nil, errors.New("cryptoworker: worker did not come up in time")
	}
	return client, cmd, nil
}

// RunWorkerProcess is the child process's entire main body: bind the
// Unix socket, serve RPC requests against keyring until the listener
// is closed or the process receives its stop signal.
func RunWorkerProcess(socketPath string, keyring Keyring) error {
	_ = os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return errors.Wrap(err, "cryptoworker: listen")
	}
	defer func() { _ = listener.Close() }()
	return Serve(listener, NewService(keyring))
}
