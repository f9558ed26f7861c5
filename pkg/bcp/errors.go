package bcp

import (
	"regexp"
	"strconv"
	"strings"
)

const redacted = "******"

// passwordArg matches the quoted value following a quoted -P flag, as rendered
// by formatArgs.
var passwordArg = regexp.MustCompile(`(-P",\s*")(?:[^"\\]|\\.)*(")`)

// Redact hides the value following every -P flag in a rendered argument list.
func Redact(s string) string {
	return passwordArg.ReplaceAllString(s, "${1}"+redacted+"${2}")
}

// redactArgs returns a copy of args with every -P value replaced.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-P" {
			out[i+1] = redacted
		}
	}

	return out
}

// formatArgs renders args as ["a", "b"] with credentials redacted.
func formatArgs(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range redactArgs(args) {
		quoted = append(quoted, strconv.Quote(a))
	}

	return "[" + strings.Join(quoted, ", ") + "]"
}

// SpawnError is returned when the bcp executable cannot be started.
type SpawnError struct {
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	return Redact("bcp process spawn failure, args: " + formatArgs(e.Args) + ", error: " + e.Err.Error())
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ProcessError is returned when bcp exits unsuccessfully, is abandoned, or its
// output cannot be read.
type ProcessError struct {
	Args []string
	Err  error
}

func (e *ProcessError) Error() string {
	msg := "bcp process failure, args: " + formatArgs(e.Args)
	if e.Err != nil {
		msg += ", error: " + e.Err.Error()
	}

	return Redact(msg)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
