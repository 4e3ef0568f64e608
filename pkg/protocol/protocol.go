// Package protocol implements the line oriented session spoken between a remote
// oracle and its server process.
//
// Every command is one newline terminated line and gets exactly one response:
//
//	checksum <path>          OK <hex digest>
//	metadata <root>          OK START, entries, END
//	rename <from>\x00<to>    OK
//	exit                     (no response, session ends)
//
// A metadata entry is "<size> <mtime> <path>\x00\n". The path is the only
// field that may hold arbitrary bytes, so it is NUL terminated and never split
// on newlines. Failures are reported as "ERR <message>" and leave the session open.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CmdChecksum = "checksum"
	CmdMetadata = "metadata"
	CmdRename   = "rename"
	CmdExit     = "exit"

	respOK      = "OK"
	respErr     = "ERR"
	respStart   = "OK START"
	respEnd     = "END"
	pathEnd     = '\x00'
	lineEnd     = '\n'
	invalidCmd  = "Invalid command"
	renameSplit = "\x00"
)

var (
	// ErrMalformedResponse is returned when a response does not follow the framing rules
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnencodablePath is returned for paths that cannot be carried in a command line
	ErrUnencodablePath = errors.New("path cannot be encoded in a command")
)

// RemoteError is an ERR response sent by the server
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Command, e.Message)
}

// ValidatePath reports whether p can be sent as a command argument
func ValidatePath(p string) error {
	if strings.ContainsAny(p, "\r\n\x00") {
		return fmt.Errorf("%w: %q", ErrUnencodablePath, p)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
