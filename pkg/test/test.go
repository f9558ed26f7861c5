// Package test holds helpers shared by package tests: fake executables, UTF-16
// fixtures and hand-built archives.
package test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

// Logger returns a logrus logger that writes nowhere unless -v is set.
func Logger(t *testing.T) *logrus.Logger {
	t.Helper()
	logger := logrus.New()
	if !testing.Verbose() {
		logger.SetOutput(io.Discard)
	}
	logger.SetLevel(logrus.DebugLevel)

	return logger
}

// WriteScript writes an executable /bin/sh script into dir and returns its path.
// Tests that need it are skipped on Windows.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

// UTF16LE encodes s as UTF-16 little endian, optionally with a byte order mark.
func UTF16LE(t *testing.T, s string, bom bool) []byte {
	t.Helper()
	policy := unicode.IgnoreBOM
	if bom {
		policy = unicode.UseBOM
	}
	out, err := unicode.UTF16(unicode.LittleEndian, policy).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)

	return out
}

// FromUTF16LE decodes UTF-16 little endian data, dropping a leading BOM.
func FromUTF16LE(t *testing.T, data []byte) string {
	t.Helper()
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	require.NoError(t, err)

	return string(out)
}

func Gzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func Zstd(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	return enc.EncodeAll(data, nil)
}

// ZipEntry is one entry of a hand-built archive. Names ending in "/" are
// written as directories.
type ZipEntry struct {
	Name string
	Data []byte
}

// WriteZip writes entries, in order, into a new zip file at path.
func WriteZip(t *testing.T, path string, entries ...ZipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Store})
		require.NoError(t, err)
		if len(e.Data) > 0 {
			_, err = w.Write(e.Data)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
}

// ZipEntryNames lists the entry names of the archive at path in stored order.
func ZipEntryNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	return names
}

// ReadZipEntry returns the raw (still codec-compressed) content of one entry.
func ReadZipEntry(t *testing.T, path, name string) []byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)

		return data
	}
	require.Failf(t, "entry not found", "%s has no entry %s", path, name)

	return nil
}

// RequireNotExist fails the test if path exists.
func RequireNotExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "expected %s to be absent, stat error: %v", path, err)
}
