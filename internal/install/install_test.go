package install

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type release struct {
	files     map[string][]byte
	downloads atomic.Int32
}

func (r *release) serve(t *testing.T) string {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		content, ok := r.files[strings.TrimPrefix(req.URL.Path, "/")]
		if !ok {
			http.NotFound(w, req)
			return
		}
		r.downloads.Add(1)
		w.Write(content)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		goos    string
		goarch  string
		want    string
		wantErr bool
	}{
		{goos: "linux", goarch: "amd64", want: "qodana_linux_x86_64.tar.gz"},
		{goos: "linux", goarch: "arm64", want: "qodana_linux_arm64.tar.gz"},
		{goos: "darwin", goarch: "arm64", want: "qodana_darwin_arm64.tar.gz"},
		{goos: "windows", goarch: "amd64", want: "qodana_windows_x86_64.zip"},
		{goos: "linux", goarch: "386", wantErr: true},
		{goos: "freebsd", goarch: "amd64", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := ArchiveName(tt.goos, tt.goarch)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstall(t *testing.T) {
	archive := tarGz(t, map[string]string{"qodana": "#!/bin/sh\n", "LICENSE": "Apache-2.0"})
	const name = "qodana_linux_x86_64.tar.gz"

	tests := []struct {
		name      string
		nightly   bool
		checksums map[string]string
		files     map[string][]byte
		wantErr   error
	}{
		{
			name:      "configured checksum",
			checksums: map[string]string{name: digest(archive)},
			files:     map[string][]byte{"v2025.1.1/" + name: archive},
		},
		{
			name: "published checksum",
			files: map[string][]byte{
				"v2025.1.1/" + name:          archive,
				"v2025.1.1/" + checksumsFile: []byte(fmt.Sprintf("%s  %s\n%s  other.zip\n", digest(archive), name, digest(nil))),
			},
		},
		{
			name:      "mismatch",
			checksums: map[string]string{name: digest([]byte("tampered"))},
			files:     map[string][]byte{"v2025.1.1/" + name: archive},
			wantErr:   ErrChecksumMismatch,
		},
		{
			name:    "nightly is not verified",
			nightly: true,
			files:   map[string][]byte{"nightly/" + name: archive},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := &release{files: tt.files}
			installer := &Installer{
				Version:   "2025.1.1",
				Nightly:   tt.nightly,
				Checksums: tt.checksums,
				BaseURL:   rel.serve(t),
				Dir:       t.TempDir(),
				goos:      "linux",
				goarch:    "amd64",
			}

			binary, err := installer.Install(context.Background())
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "qodana", filepath.Base(binary))

			info, err := os.Stat(binary)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

			_, err = os.Stat(filepath.Join(filepath.Dir(binary), name))
			assert.True(t, os.IsNotExist(err), "archive is removed after extraction")
		})
	}
}

func TestInstallReusesInstalledVersion(t *testing.T) {
	archive := tarGz(t, map[string]string{"qodana": "bin"})
	rel := &release{files: map[string][]byte{"v2025.1.1/qodana_linux_arm64.tar.gz": archive}}
	installer := &Installer{
		Version:   "v2025.1.1",
		Checksums: map[string]string{"qodana_linux_arm64.tar.gz": digest(archive)},
		BaseURL:   rel.serve(t),
		Dir:       t.TempDir(),
		goos:      "linux",
		goarch:    "arm64",
	}

	first, err := installer.Install(context.Background())
	require.NoError(t, err)
	second, err := installer.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), rel.downloads.Load())
}

func TestInstallRemovesPartialDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Promise more than is sent so the client sees a truncated body.
		w.Header().Set("Content-Length", "1024")
		w.Write([]byte("partial"))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	installer := &Installer{
		Version: "2025.1.1",
		BaseURL: server.URL,
		Dir:     dir,
		goos:    "linux",
		goarch:  "amd64",
	}
	_, err := installer.Install(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "v2025.1.1", "qodana_linux_x86_64.tar.gz"))
}

func TestInstallZip(t *testing.T) {
	archive := zipArchive(t, map[string]string{"qodana.exe": "MZ"})
	rel := &release{files: map[string][]byte{"v2025.1.1/qodana_windows_x86_64.zip": archive}}
	installer := &Installer{
		Version:   "2025.1.1",
		Checksums: map[string]string{"qodana_windows_x86_64.zip": digest(archive)},
		BaseURL:   rel.serve(t),
		Dir:       t.TempDir(),
		goos:      "windows",
		goarch:    "amd64",
	}

	binary, err := installer.Install(context.Background())
	require.NoError(t, err)
	content, err := os.ReadFile(binary)
	require.NoError(t, err)
	assert.Equal(t, "MZ", string(content))
}

func TestInstallRejectsEscapingEntries(t *testing.T) {
	archive := tarGz(t, map[string]string{"../evil": "x"})
	rel := &release{files: map[string][]byte{"v1.0.0/qodana_linux_x86_64.tar.gz": archive}}
	installer := &Installer{
		Version:   "1.0.0",
		Checksums: map[string]string{"qodana_linux_x86_64.tar.gz": digest(archive)},
		BaseURL:   rel.serve(t),
		Dir:       t.TempDir(),
		goos:      "linux",
		goarch:    "amd64",
	}

	_, err := installer.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestParseChecksums(t *testing.T) {
	checksums, err := ParseChecksums(strings.NewReader("abc  a.tar.gz\ndef *b.zip\n\nmalformed\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.tar.gz": "abc", "b.zip": "def"}, checksums)
}
