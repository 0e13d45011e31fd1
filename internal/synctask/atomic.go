package synctask

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// writeFileAtomically writes content to a temp file alongside dest and
// renames it into place, the way _examples/nicolagi-muscle/internal/storage/disk.go's
// DiskStore writes blocks: never leave a destination path half-written.
func writeFileAtomically(dest string, content io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := ioutil.TempFile(dir, ".bajoo-tmp-*")
	if err != nil {
		return errors.Wrapf(err, "synctask: create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "synctask: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "synctask: close %s", tmpName)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "synctask: rename %s to %s", tmpName, dest)
	}
	return nil
}

// sha256File returns the hex-encoded sha256 digest of path's content.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
