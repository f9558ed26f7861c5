package archive

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/block/bcpzip/pkg/progress"
	"github.com/klauspost/compress/zip"
)

// WriteDir packs workDir into a new zip at archivePath. The first entry is the
// directory itself, named after filepath.Base(workDir); under it, each level
// lists files before sub-directories, both in lexical order. File content is
// stored as-is since table data is already compressed.
func WriteDir(workDir, archivePath string, sink progress.Sink) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return errorf(err, "Error creating archive file, path: %s", archivePath)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err = addDir(zw, workDir, filepath.Base(workDir), sink); err != nil {
		_ = zw.Close()

		return err
	}
	if err = zw.Close(); err != nil {
		return errorf(err, "Error finalizing archive, path: %s", archivePath)
	}
	if err = f.Close(); err != nil {
		return errorf(err, "Error closing archive file, path: %s", archivePath)
	}

	return nil
}

func addDir(zw *zip.Writer, dir, entryName string, sink progress.Sink) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errorf(err, "Error reading directory, path: %s", dir)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errorf(err, "Error creating archive entry, path: %s", dir)
	}
	hdr.Name = entryName + "/"
	hdr.Method = zip.Store
	if _, err = zw.CreateHeader(hdr); err != nil {
		return errorf(err, "Error creating archive entry, name: %s", hdr.Name)
	}
	sink.Progress(hdr.Name)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errorf(err, "Error reading directory, path: %s", dir)
	}
	var files, dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	slices.Sort(dirs)

	for _, name := range files {
		if err = addFile(zw, filepath.Join(dir, name), path.Join(entryName, name), sink); err != nil {
			return err
		}
	}
	for _, name := range dirs {
		if err = addDir(zw, filepath.Join(dir, name), path.Join(entryName, name), sink); err != nil {
			return err
		}
	}

	return nil
}

func addFile(zw *zip.Writer, src, entryName string, sink progress.Sink) error {
	in, err := os.Open(src)
	if err != nil {
		return errorf(err, "Error opening file, path: %s", src)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return errorf(err, "Error reading file, path: %s", src)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errorf(err, "Error creating archive entry, path: %s", src)
	}
	hdr.Name = strings.ReplaceAll(entryName, "\\", "/")
	hdr.Method = zip.Store
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errorf(err, "Error creating archive entry, name: %s", hdr.Name)
	}
	if _, err = io.Copy(w, in); err != nil {
		return errorf(err, "Error writing archive entry, name: %s", hdr.Name)
	}
	sink.Progress(hdr.Name)

	return nil
}
