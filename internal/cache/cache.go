/*
Copyright © 2025 JetBrains s.r.o.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cache

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrCacheMiss is returned by a Store that holds no entry for a key.
var ErrCacheMiss = errors.New("cache miss")

const archiveExt = ".tar.zst"

// Store keeps cache archives by key.
type Store interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.ReadSeeker) error
}

// Finder is implemented by stores that can look entries up by key prefix.
type Finder interface {
	// Latest returns the most recently stored key starting with prefix.
	Latest(ctx context.Context, prefix string) (string, error)
}

// Restore unpacks the first entry found into dir: key itself, then the most
// recent entry for each restore key prefix when the store supports lookups.
// It returns the key that was restored.
func Restore(ctx context.Context, store Store, dir, key string, restoreKeys ...string) (string, error) {
	candidates := []string{key}
	if finder, ok := store.(Finder); ok {
		for _, prefix := range restoreKeys {
			latest, err := finder.Latest(ctx, prefix)
			if errors.Is(err, ErrCacheMiss) {
				continue
			}
			if err != nil {
				return "", err
			}
			candidates = append(candidates, latest)
		}
	}

	for _, candidate := range candidates {
		rc, err := store.Get(ctx, candidate)
		if errors.Is(err, ErrCacheMiss) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "get cache %s", candidate)
		}
		err = Unpack(rc, dir)
		rc.Close()
		if err != nil {
			return "", errors.Wrapf(err, "unpack cache %s", candidate)
		}
		return candidate, nil
	}
	return "", ErrCacheMiss
}

// Save packs dir and stores it under key.
func Save(ctx context.Context, store Store, dir, key string) error {
	file, err := os.CreateTemp("", "qodana-cache-*"+archiveExt)
	if err != nil {
		return err
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := Pack(dir, file); err != nil {
		return errors.Wrapf(err, "pack %s", dir)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return errors.Wrapf(store.Put(ctx, key, file), "put cache %s", key)
}

// objectName turns a key into a flat file name.
func objectName(key string) string {
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(key) + archiveExt
}
