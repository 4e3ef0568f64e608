package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuya-takeyama/mvsync/pkg/index"
)

func writeMetadata(w *bufio.Writer, idx *index.Index) error {
	if _, err := w.WriteString(respStart + "\n"); err != nil {
		return err
	}
	for _, e := range idx.Entries() {
		if _, err := fmt.Fprintf(w, "%d %d %s%c%c", e.Fingerprint.Size, e.Fingerprint.ModTime, e.Path, pathEnd, lineEnd); err != nil {
			return err
		}
	}
	_, err := w.WriteString(respEnd + "\n")
	return err
}

// readMetadataEntries reads entries up to and including the END trailer
func readMetadataEntries(r *bufio.Reader) (*index.Index, error) {
	idx := index.New()

	for {
		next, err := r.Peek(1)
		if err != nil {
			return nil, transportErr(err)
		}

		// Entries start with a digit, the trailer does not
		if next[0] == respEnd[0] {
			line, err := readLine(r)
			if err != nil {
				return nil, err
			}
			if line != respEnd {
				return nil, malformed("expected %s, got %q", respEnd, line)
			}
			return idx, nil
		}

		record, err := r.ReadString(pathEnd)
		if err != nil {
			return nil, transportErr(err)
		}
		terminator, err := r.ReadByte()
		if err != nil {
			return nil, transportErr(err)
		}
		if terminator != lineEnd {
			return nil, malformed("entry not followed by newline")
		}

		fp, path, err := parseEntry(strings.TrimSuffix(record, string(pathEnd)))
		if err != nil {
			return nil, err
		}
		idx.Add(fp, path)
	}
}

func parseEntry(record string) (index.Fingerprint, string, error) {
	sizeField, rest, ok := strings.Cut(record, " ")
	if !ok {
		return index.Fingerprint{}, "", malformed("entry missing fields: %q", record)
	}
	mtimeField, path, ok := strings.Cut(rest, " ")
	if !ok || path == "" {
		return index.Fingerprint{}, "", malformed("entry missing path: %q", record)
	}

	size, err := strconv.ParseUint(sizeField, 10, 64)
	if err != nil {
		return index.Fingerprint{}, "", malformed("bad size %q", sizeField)
	}
	mtime, err := strconv.ParseUint(mtimeField, 10, 64)
	if err != nil {
		return index.Fingerprint{}, "", malformed("bad modification time %q", mtimeField)
	}

	return index.Fingerprint{Size: size, ModTime: mtime}, path, nil
}

// readLine reads one response line without its terminator
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString(lineEnd)
	if err != nil {
		return "", transportErr(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// transportErr turns a clean EOF in the middle of a response into an unexpected one
func transportErr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// oneLine flattens an error message so it fits an ERR response
func oneLine(msg string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(msg)
}
