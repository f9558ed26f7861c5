package archive

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/block/bcpzip/pkg/progress"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/samber/lo"
)

const (
	dataExt   = ".bcp"
	formatExt = ".xml"
)

// Table is an importable table found in an archive.
type Table struct {
	Schema    string
	Name      string
	SizeBytes uint64
	Selected  bool
	Codec     Codec
}

func (t Table) String() string {
	return t.Schema + "." + t.Name
}

// DataFile is the uncompressed data file name used in the work directory.
func (t Table) DataFile() string {
	return t.String() + dataExt
}

func (t Table) FormatFile() string {
	return t.String() + formatExt
}

// ParseEntryName parses the base name of a data entry, <schema>.<table>.bcp.<codec>.
func ParseEntryName(name string) (Table, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[2] != strings.TrimPrefix(dataExt, ".") || parts[0] == "" || parts[1] == "" {
		return Table{}, &Error{Msg: "Unexpected archive entry name: " + name}
	}
	codec := Codec(parts[3])
	if codec != Gzip && codec != Zstd {
		return Table{}, &Error{Msg: "Unexpected archive entry name: " + name}
	}

	return Table{Schema: parts[0], Name: parts[1], Codec: codec}, nil
}

// ListTables lists the importable tables in the archive at archivePath, in
// entry order. SizeBytes is the uncompressed size of the entry.
func ListTables(archivePath string, sink progress.Sink) ([]Table, error) {
	zr, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	sink.Progress("Loading tables ...")
	var tables []Table
	for _, f := range zr.File {
		if !isDataEntry(f.Name) {
			continue
		}
		tbl, err := ParseEntryName(path.Base(f.Name))
		if err != nil {
			return nil, err
		}
		tbl.SizeBytes = f.UncompressedSize64
		sink.Progress(fmt.Sprintf("%s %s", tbl, humanize.Bytes(tbl.SizeBytes)))
		tables = append(tables, tbl)
	}

	return tables, nil
}

// Selected returns the tables marked as selected, preserving order.
func Selected(tables []Table) []Table {
	return lo.Filter(tables, func(t Table, _ int) bool {
		return t.Selected
	})
}

// Select marks tables whose "schema.name" matches one of names, case
// insensitively. An empty names list selects every table.
func Select(tables []Table, names []string) []Table {
	wanted := lo.Associate(names, func(n string) (string, struct{}) {
		return strings.ToLower(n), struct{}{}
	})

	return lo.Map(tables, func(t Table, _ int) Table {
		_, ok := wanted[strings.ToLower(t.String())]
		t.Selected = len(names) == 0 || ok

		return t
	})
}

// Extract unpacks the data and format entries for tbl into workDir. The zstd
// data entry is preferred over gz; the data is decompressed to <s>.<t>.bcp.
func Extract(archivePath string, tbl Table, workDir string, sink progress.Sink) error {
	sink.Progress(fmt.Sprintf("Unpacking %s into directory %s", tbl.DataFile(), workDir))
	zr, err := openArchive(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	root, err := rootDir(zr)
	if err != nil {
		return err
	}
	entries := lo.Associate(zr.File, func(f *zip.File) (string, *zip.File) {
		return f.Name, f
	})

	candidates := lo.Map(Codecs, func(c Codec, _ int) string {
		return root + tbl.DataFile() + c.Ext()
	})
	var data *zip.File
	var codec Codec
	for i, name := range candidates {
		if f, ok := entries[name]; ok {
			data, codec = f, Codecs[i]

			break
		}
	}
	if data == nil {
		return &Error{Msg: fmt.Sprintf("data entry not found in archive, name: %s or %s", candidates[0], candidates[1])}
	}

	rc, err := data.Open()
	if err != nil {
		return errorf(err, "Error opening archive entry, name: %s", data.Name)
	}
	defer rc.Close()
	if err = decompress(codec, rc, filepath.Join(workDir, tbl.DataFile())); err != nil {
		return err
	}

	formatName := root + tbl.FormatFile()
	format, ok := entries[formatName]
	if !ok {
		return &Error{Msg: "format entry not found in archive, name: " + formatName}
	}

	return extractEntry(format, filepath.Join(workDir, tbl.FormatFile()))
}

func openArchive(archivePath string) (*zip.ReadCloser, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, errorf(err, "Specified file is not found, path: %s", archivePath)
	}
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errorf(err, "Error opening ZIP file, path: %s", archivePath)
	}

	return zr, nil
}

// rootDir returns the name of the first directory entry, with its trailing slash.
func rootDir(zr *zip.ReadCloser) (string, error) {
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			return f.Name, nil
		}
	}

	return "", &Error{Msg: "root directory entry not found in archive"}
}

func isDataEntry(name string) bool {
	return lo.SomeBy(Codecs, func(c Codec) bool {
		return strings.HasSuffix(name, dataExt+c.Ext())
	})
}

func extractEntry(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return errorf(err, "Error opening archive entry, name: %s", f.Name)
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errorf(err, "Error creating file, path: %s", dst)
	}
	defer out.Close()
	if _, err = io.Copy(out, rc); err != nil {
		return errorf(err, "Error extracting archive entry, name: %s", f.Name)
	}
	if err = out.Close(); err != nil {
		return errorf(err, "Error closing file, path: %s", dst)
	}

	return nil
}
