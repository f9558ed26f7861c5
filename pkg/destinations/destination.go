package destinations

import "fmt"

// DstType says where a finished archive is published.
type DstType int32

const (
	// Local keeps the archive where it was written.
	Local DstType = iota
	// Dir copies the archive into a second directory.
	Dir
	// S3 uploads the archive to s3://bucket/prefix.
	S3
)

func (s DstType) String() string {
	switch s {
	case Local:
		return "local"
	case Dir:
		return "dir"
	case S3:
		return "s3"
	}

	return "unknown"
}

func Parse(s string) (DstType, error) {
	for _, d := range []DstType{Local, Dir, S3} {
		if d.String() == s {
			return d, nil
		}
	}

	return Local, fmt.Errorf("unknown destination type %s", s)
}
