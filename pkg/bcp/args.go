package bcp

import (
	"fmt"

	"github.com/block/bcpzip/pkg/conn"
)

// Mode is the bcp direction token.
type Mode string

const (
	ModeFormat Mode = "format"
	ModeOut    Mode = "out"
	ModeIn     Mode = "in"
)

// Object identifies one table as [db].[schema].[table].
type Object struct {
	Database string
	Schema   string
	Table    string
}

func (o Object) String() string {
	return fmt.Sprintf("[%s].[%s].[%s]", o.Database, o.Schema, o.Table)
}

// Request describes one bcp invocation. File names are relative to Dir, which is
// also the child's working directory.
type Request struct {
	Object     Object
	Dir        string
	DataFile   string
	FormatFile string
}

// FormatArgs generates an XML format file without moving any data.
func FormatArgs(p conn.Profile, r Request) []string {
	args := []string{
		r.Object.String(),
		string(ModeFormat), "nul",
		"-f", r.FormatFile,
		"-x",
		"-n",
		"-k",
		"-K", "ReadOnly",
	}

	return appendConnArgs(args, p)
}

// OutArgs exports table data into DataFile using FormatFile.
func OutArgs(p conn.Profile, r Request) []string {
	args := []string{
		r.Object.String(),
		string(ModeOut), r.DataFile,
		"-f", r.FormatFile,
		"-k",
		"-K", "ReadOnly",
	}

	return appendConnArgs(args, p)
}

// InArgs loads DataFile into the table, keeping identity values and committing
// every row.
func InArgs(p conn.Profile, r Request) []string {
	args := []string{
		r.Object.String(),
		string(ModeIn), r.DataFile,
		"-f", r.FormatFile,
		"-k",
		"-E",
		"-m", "1",
	}

	return appendConnArgs(args, p)
}

func appendConnArgs(args []string, p conn.Profile) []string {
	args = append(args, "-S", p.ServerArg())

	return append(args, p.AuthArgs()...)
}
