// Package cryptoworker runs encryption and decryption in a separate OS
// process, exposing the same task-channel shape as internal/syncexec
// but realized as a net/rpc service (grounded on
// _examples/nicolagi-muscle/internal/storage/rpc.go's
// StoreService/RemoteStore pair) instead of hand-rolled channels,
// since net/rpc already gives framed request/response messaging
// across the process boundary.
package cryptoworker

// EncryptArgs/EncryptReply and DecryptArgs/DecryptReply are the
// request/response pairs exchanged over the RPC connection. Streams
// are read fully into memory on the client side before the call:
// files passing through this worker are whole encrypted container
// objects, not unbounded streams.
type EncryptArgs struct {
	Content    []byte
	Recipients []string
}

type EncryptReply struct {
	Content []byte
}

type DecryptArgs struct {
	Content    []byte
	Key        []byte
	Passphrase string
}

type DecryptReply struct {
	Content []byte
}
