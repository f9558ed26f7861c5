package bcp

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

var collationAttr = regexp.MustCompile(`(?i)\sCOLLATION="[^"]*"`)

var utf16LEBOM = []byte{0xFF, 0xFE}

// StripCollation rewrites a bcp XML format file so that every COLLATION attribute
// is empty, letting the file be replayed against a server with a different
// default collation. The file keeps its UTF-16 encoding and byte order mark.
func StripCollation(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("format file post-processing error: %w", err)
	}
	enc := formatFileEncoding(data)
	text, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return fmt.Errorf("format file post-processing error: %w", err)
	}
	replaced := collationAttr.ReplaceAll(text, []byte(` COLLATION=""`))
	out, err := enc.NewEncoder().Bytes(replaced)
	if err != nil {
		return fmt.Errorf("format file post-processing error: %w", err)
	}
	if err = os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("format file post-processing error: %w", err)
	}

	return nil
}

// formatFileEncoding picks UTF-16LE, writing a BOM back only if one was present.
func formatFileEncoding(data []byte) encoding.Encoding {
	if bytes.HasPrefix(data, utf16LEBOM) {
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	}

	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}
