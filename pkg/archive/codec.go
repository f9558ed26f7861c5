package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/block/bcpzip/pkg/progress"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec is the compressor applied to table data files. Its value doubles as the
// file extension.
type Codec string

const (
	Gzip Codec = "gz"
	Zstd Codec = "zstd"

	DefaultCodec = Zstd
)

// Codecs lists supported codecs in reader preference order.
var Codecs = []Codec{Zstd, Gzip}

func ParseCodec(s string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(s))) {
	case Gzip, "gzip":
		return Gzip, nil
	case Zstd, "zst":
		return Zstd, nil
	}

	return "", fmt.Errorf("unsupported codec %q, supported: gz, zstd", s)
}

func (c *Codec) UnmarshalText(text []byte) error {
	parsed, err := ParseCodec(string(text))
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}

func (c Codec) String() string {
	return string(c)
}

// Ext returns the file extension, including the leading dot.
func (c Codec) Ext() string {
	return "." + string(c)
}

func (c Codec) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	}

	return nil, fmt.Errorf("unsupported codec %q", string(c))
}

func (c Codec) newReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}

		return dec.IOReadCloser(), nil
	}

	return nil, fmt.Errorf("unsupported codec %q", string(c))
}

// CompressFile compresses dir/name into dir/name<codec ext> and removes the
// source file. It returns the compressed file name.
func CompressFile(dir, name string, codec Codec, sink progress.Sink) (string, error) {
	src := filepath.Join(dir, name)
	dstName := name + codec.Ext()
	sink.Progress("Compressing: " + src)

	in, err := os.Open(src)
	if err != nil {
		return "", errorf(err, "Error opening file, path: %s", src)
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(dir, dstName))
	if err != nil {
		return "", errorf(err, "Error creating file, path: %s", filepath.Join(dir, dstName))
	}
	defer out.Close()

	w, err := codec.newWriter(out)
	if err != nil {
		return "", errorf(err, "Error compressing file, path: %s", src)
	}
	if _, err = io.Copy(w, in); err != nil {
		_ = w.Close()

		return "", errorf(err, "Error compressing file, path: %s", src)
	}
	if err = w.Close(); err != nil {
		return "", errorf(err, "Error compressing file, path: %s", src)
	}
	if err = out.Close(); err != nil {
		return "", errorf(err, "Error closing file, path: %s", filepath.Join(dir, dstName))
	}
	_ = in.Close()
	if err = os.Remove(src); err != nil {
		return "", errorf(err, "Error removing file, path: %s", src)
	}

	return dstName, nil
}

// decompress copies r through the codec's decoder into a new file at dst.
func decompress(codec Codec, r io.Reader, dst string) error {
	dec, err := codec.newReader(r)
	if err != nil {
		return errorf(err, "Error decompressing file, path: %s", dst)
	}
	defer dec.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errorf(err, "Error creating file, path: %s", dst)
	}
	defer out.Close()
	if _, err = io.Copy(out, dec); err != nil {
		return errorf(err, "Error decompressing file, path: %s", dst)
	}
	if err = out.Close(); err != nil {
		return errorf(err, "Error closing file, path: %s", dst)
	}

	return nil
}
