package cache

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
)

// DirStore keeps archives in a directory that outlives the job, such as a
// runner-local cache path.
type DirStore struct {
	Root string
}

func (s *DirStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(s.Root, objectName(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	return file, err
}

func (s *DirStore) Put(_ context.Context, key string, r io.ReadSeeker) error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Root, ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.Root, objectName(key)))
}

func (s *DirStore) Latest(_ context.Context, prefix string) (string, error) {
	pattern := escapeGlob(strings.TrimSuffix(objectName(prefix), archiveExt)) + "*" + archiveExt
	matches, err := doublestar.Glob(os.DirFS(s.Root), pattern)
	if err != nil {
		return "", err
	}

	var (
		latest   string
		modified int64
	)
	for _, match := range matches {
		info, err := os.Stat(filepath.Join(s.Root, match))
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().UnixNano() > modified {
			latest, modified = strings.TrimSuffix(match, archiveExt), info.ModTime().UnixNano()
		}
	}
	if latest == "" {
		return "", ErrCacheMiss
	}
	return latest, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "{", `\{`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
