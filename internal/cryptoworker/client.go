package cryptoworker

import (
	"bytes"
	"io"
	"io/ioutil"
	"net/rpc"

	"github.com/pkg/errors"
)

// Client is the parent process's handle on the encryption worker. It
// implements the same EncryptionService interface synctask consumes,
// so callers never see the RPC plumbing.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a worker process already listening on network/address
// (a Unix socket path in the common case, matching
// _examples/nicolagi-muscle/internal/storage/rpc.go's RemoteStore.Dial shape).
func Dial(network, address string) (*Client, error) {
	conn, err := rpc.Dial(network, address)
	if err != nil {
		return nil, errors.Wrap(err, "cryptoworker: dial")
	}
	return &Client{rpc: conn}, nil
}

// Close disconnects from the worker. The worker observes this as its
// stop signal (DESIGN NOTES: "both sides watch the other's closing").
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) Encrypt(content io.Reader, recipients []string) (io.Reader, error) {
	data, err := ioutil.ReadAll(content)
	if err != nil {
		return nil, err
	}
	var reply EncryptReply
	if err := c.rpc.Call("Encryption.Encrypt", EncryptArgs{Content: data, Recipients: recipients}, &reply); err != nil {
		return nil, errors.Wrap(err, "cryptoworker: encrypt")
	}
	return bytes.NewReader(reply.Content), nil
}

func (c *Client) Decrypt(content io.Reader, key []byte, passphrase string) (io.Reader, error) {
	data, err := ioutil.ReadAll(content)
	if err != nil {
		return nil, err
	}
	var reply DecryptReply
	if err := c.rpc.Call("Encryption.Decrypt", DecryptArgs{Content: data, Key: key, Passphrase: passphrase}, &reply); err != nil {
		return nil, errors.Wrap(err, "cryptoworker: decrypt")
	}
	return bytes.NewReader(reply.Content), nil
}
