package container

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/ioutil"
	"sync"
)

// InMemory is a Container backed by a map, used by tests in place of
// a real remote service.
type InMemory struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ Container = (*InMemory)(nil)

// NewInMemory returns an empty in-memory container.
func NewInMemory() *InMemory {
	return &InMemory{files: make(map[string][]byte)}
}

func (m *InMemory) Upload(path string, content io.Reader) (UploadResult, error) {
	data, err := ioutil.ReadAll(content)
	if err != nil {
		return UploadResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	return UploadResult{NewRemoteHash: hashOf(data)}, nil
}

func (m *InMemory) Download(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (m *InMemory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return ErrNotFound
	}
	delete(m.files, path)
	return nil
}

func (m *InMemory) ListFiles() ([]FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]FileEntry, 0, len(m.files))
	for path, data := range m.files {
		entries = append(entries, FileEntry{Path: path, RemoteHash: hashOf(data)})
	}
	return entries, nil
}

func hashOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
