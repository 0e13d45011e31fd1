package cryptoworker

import (
	"net"
	"net/rpc"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("pkg", "cryptoworker")

// Keyring performs the actual cryptographic work. Its concrete
// implementation (GPG invocation, key management) is deliberately out
// of scope here; Service only needs this narrow interface to expose
// the encrypt/decrypt contract over RPC.
type Keyring interface {
	Encrypt(content []byte, recipients []string) ([]byte, error)
	Decrypt(content []byte, key []byte, passphrase string) ([]byte, error)
}

// Service wraps a Keyring for net/rpc registration. One Service runs
// inside the worker process; Client is the parent process's view of
// it.
type Service struct {
	keyring Keyring
}

// NewService returns an RPC service delegating to keyring.
func NewService(keyring Keyring) *Service {
	return &Service{keyring: keyring}
}

func (s *Service) Encrypt(args EncryptArgs, reply *EncryptReply) error {
	out, err := s.keyring.Encrypt(args.Content, args.Recipients)
	if err != nil {
		return err
	}
	reply.Content = out
	return nil
}

func (s *Service) Decrypt(args DecryptArgs, reply *DecryptReply) error {
	out, err := s.keyring.Decrypt(args.Content, args.Key, args.Passphrase)
	if err != nil {
		return err
	}
	reply.Content = out
	return nil
}

// Serve registers service and accepts RPC connections on listener,
// one goroutine per connection (net/rpc's own ServeConn, same as a
// stock rpc.Server). When a client closes its connection, Serve closes
// the listener, so a client's Close stops the worker. Serve returns
// once the listener is closed, which is this worker process's cue to
// exit.
func Serve(listener net.Listener, service *Service) error {
	server := rpc.NewServer()
	if err := server.RegisterName("Encryption", service); err != nil {
		return errors.Wrap(err, "cryptoworker: register service")
	}
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go func() {
			server.ServeConn(conn)
			_ = listener.Close()
		}()
	}
}

// NullKeyring is a pass-through Keyring for tests and local smoke
// runs: it returns content unmodified, annotating neither confidentiality
// nor integrity. Never select this at runtime for a real container.
type NullKeyring struct{}

func (NullKeyring) Encrypt(content []byte, _ []string) ([]byte, error) {
	return content, nil
}

func (NullKeyring) Decrypt(content []byte, _ []byte, _ string) ([]byte, error) {
	return content, nil
}
