package archive

import (
	"path/filepath"
	"strings"
)

const zipExt = ".zip"

// DestinationNames derives the archive file name and its root directory name
// from a caller-supplied file name. A name without an extension gets ".zip"
// appended; the root directory is the name with its extension removed. A
// leading dot does not start an extension, so ".backup" has none.
func DestinationNames(filename string) (archiveName, rootName string) {
	ext := filepath.Ext(filename)
	if ext == "" || ext == filename {
		return filename + zipExt, filename
	}

	return filename, strings.TrimSuffix(filename, ext)
}

// SplitOutputPath splits an output path into its parent directory and file name.
func SplitOutputPath(path string) (dir, filename string, err error) {
	if strings.TrimSpace(path) == "" {
		return "", "", &PathError{Path: path, Msg: "Error getting file name"}
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return "", "", &PathError{Path: path, Msg: "Error getting file name"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", &PathError{Path: path, Msg: "Error getting parent directory"}
	}
	filename = filepath.Base(abs)
	if filename == "." || filename == string(filepath.Separator) {
		return "", "", &PathError{Path: path, Msg: "Error getting file name"}
	}

	return filepath.Dir(abs), filename, nil
}
