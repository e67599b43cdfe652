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

package install

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultBaseURL hosts the analyzer CLI releases.
const DefaultBaseURL = "https://github.com/JetBrains/qodana-cli/releases/download"

const checksumsFile = "checksums.txt"

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
)

var architectures = map[string]string{
	"amd64": "x86_64",
	"arm64": "arm64",
}

// ArchiveName returns the release archive of the CLI for a platform.
func ArchiveName(goos, goarch string) (string, error) {
	arch, ok := architectures[goarch]
	if !ok {
		return "", errors.Mark(errors.Newf("%s/%s", goos, goarch), ErrUnsupportedPlatform)
	}
	switch goos {
	case "linux", "darwin":
		return fmt.Sprintf("qodana_%s_%s.tar.gz", goos, arch), nil
	case "windows":
		return fmt.Sprintf("qodana_%s_%s.zip", goos, arch), nil
	default:
		return "", errors.Mark(errors.Newf("%s/%s", goos, goarch), ErrUnsupportedPlatform)
	}
}

// Installer downloads and unpacks a release of the analyzer CLI.
type Installer struct {
	Version string
	// Nightly installs the nightly build, which has no published checksums.
	Nightly bool
	// Checksums maps archive names to expected SHA-256 digests. Archives not
	// listed are verified against the checksums published with the release.
	Checksums  map[string]string
	BaseURL    string
	HTTPClient *http.Client
	// Dir receives one sub-directory per installed version.
	Dir string

	goos   string
	goarch string
}

// Install returns the path of the CLI binary, downloading it unless the
// version is already installed in Dir.
func (i *Installer) Install(ctx context.Context) (string, error) {
	goos, goarch := i.platform()
	archive, err := ArchiveName(goos, goarch)
	if err != nil {
		return "", err
	}

	target := filepath.Join(i.Dir, i.tag())
	binary := filepath.Join(target, binaryName(goos))
	if !i.Nightly {
		if info, err := os.Stat(binary); err == nil && !info.IsDir() {
			return binary, nil
		}
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}

	archivePath := filepath.Join(target, archive)
	defer os.Remove(archivePath)
	digest, err := i.download(ctx, i.releaseURL(archive), archivePath)
	if err != nil {
		return "", err
	}

	if !i.Nightly {
		expected, err := i.expectedChecksum(ctx, archive)
		if err != nil {
			return "", err
		}
		if !strings.EqualFold(expected, digest) {
			return "", errors.Mark(
				errors.Newf("%s: expected %s, got %s", archive, expected, digest), ErrChecksumMismatch)
		}
	}

	if strings.HasSuffix(archive, ".zip") {
		err = extractZip(archivePath, target)
	} else {
		err = extractTarGz(archivePath, target)
	}
	if err != nil {
		return "", errors.Wrapf(err, "extract %s", archive)
	}

	if err := os.Chmod(binary, 0o755); err != nil {
		return "", errors.Wrapf(err, "%s not found in %s", binaryName(goos), archive)
	}
	return binary, nil
}

func (i *Installer) platform() (string, string) {
	goos, goarch := i.goos, i.goarch
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	return goos, goarch
}

func (i *Installer) tag() string {
	if i.Nightly {
		return "nightly"
	}
	return "v" + strings.TrimPrefix(i.Version, "v")
}

func (i *Installer) releaseURL(name string) string {
	base := i.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + i.tag() + "/" + name
}

func (i *Installer) client() *http.Client {
	if i.HTTPClient != nil {
		return i.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Minute}
}

func (i *Installer) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf("download %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// download writes url to path and returns the hex SHA-256 of the content.
func (i *Installer) download(ctx context.Context, url, path string) (string, error) {
	body, err := i.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(file, hash), body); err != nil {
		file.Close()
		return "", errors.Wrapf(err, "download %s", url)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (i *Installer) expectedChecksum(ctx context.Context, archive string) (string, error) {
	if expected, ok := i.Checksums[archive]; ok {
		return expected, nil
	}

	body, err := i.get(ctx, i.releaseURL(checksumsFile))
	if err != nil {
		return "", errors.Wrapf(err, "no checksum for %s", archive)
	}
	defer body.Close()

	checksums, err := ParseChecksums(body)
	if err != nil {
		return "", err
	}
	expected, ok := checksums[archive]
	if !ok {
		return "", errors.Newf("no checksum for %s in %s", archive, checksumsFile)
	}
	return expected, nil
}

// ParseChecksums reads a sha256sum listing: one "<digest>  <file>" per line.
func ParseChecksums(r io.Reader) (map[string]string, error) {
	checksums := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		checksums[strings.TrimPrefix(fields[1], "*")] = fields[0]
	}
	return checksums, scanner.Err()
}

func binaryName(goos string) string {
	if goos == "windows" {
		return "qodana.exe"
	}
	return "qodana"
}
