// Package syncconfig loads the small line-based configuration file
// the sync daemon reads at startup, in the style of
// internal/config/config.go: "key value" pairs, "#" comments, a
// handful of defaults resolved after parsing.
package syncconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// C holds the resolved configuration for one run of the sync daemon.
type C struct {
	// Root directory of the local container, mirrored against the
	// remote container of the same id.
	ContainerRoot string
	ContainerID   string

	// Permanent storage type - "s3" or "memory" at present.
	Storage string

	S3Region  string
	S3Bucket  string
	S3Prefix  string
	S3Profile string

	// Path to cache/index directory. Defaults to ContainerRoot.
	CacheDirectory string

	ExcludeHiddenFiles bool
	QuarantineDuration time.Duration
	SaveDebounce       time.Duration

	base string
}

const (
	defaultQuarantineDuration = 24 * time.Hour
	defaultSaveDebounce       = time.Second
)

// Load loads configuration from the file called "config" in base,
// the way config.Load does, and resolves defaults afterwards.
func Load(base string) (*C, error) {
	filename := filepath.Join(base, "config")
	if fi, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("syncconfig.Load: %w", err)
	} else if fi.Mode()&0077 != 0 {
		return nil, fmt.Errorf("syncconfig.Load %q: mode is %#o, want at most %#o",
			filename, fi.Mode()&0777, fi.Mode()&0700)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	c, err := load(f)
	if err != nil {
		return nil, err
	}
	c.base = base
	if c.CacheDirectory == "" {
		c.CacheDirectory = c.ContainerRoot
	}
	if c.QuarantineDuration == 0 {
		c.QuarantineDuration = defaultQuarantineDuration
	}
	if c.SaveDebounce == 0 {
		c.SaveDebounce = defaultSaveDebounce
	}
	return c, nil
}

func load(f io.Reader) (*C, error) {
	c := C{ExcludeHiddenFiles: true}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i == -1 {
			return nil, fmt.Errorf("syncconfig.load: no separator in %q", line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		var err error
		switch key {
		case "container-root":
			c.ContainerRoot = val
		case "container-id":
			c.ContainerID = val
		case "storage":
			c.Storage = val
		case "s3-region":
			c.S3Region = val
		case "s3-bucket":
			c.S3Bucket = val
		case "s3-prefix":
			c.S3Prefix = val
		case "s3-profile":
			c.S3Profile = val
		case "cache-directory":
			c.CacheDirectory = val
		case "exclude-hidden-files":
			c.ExcludeHiddenFiles, err = strconv.ParseBool(val)
		case "quarantine-duration":
			c.QuarantineDuration, err = time.ParseDuration(val)
		case "save-debounce-ms":
			var ms int
			ms, err = strconv.Atoi(val)
			if err == nil {
				c.SaveDebounce = time.Duration(ms) * time.Millisecond
			}
		default:
			return nil, fmt.Errorf("syncconfig.load: unknown key %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("syncconfig.load: key %q: %w", key, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("syncconfig.load: %w", err)
	}
	return &c, nil
}

// IndexFilePath returns the path of the index snapshot for this
// container, following the ".bajoo-<container-id>.idx" naming
// convention.
func (c *C) IndexFilePath() string {
	return filepath.Join(c.CacheDirectory, fmt.Sprintf(".bajoo-%s.idx", c.ContainerID))
}
