package protocol

import (
	"bufio"
	"io"
	"strings"

	"github.com/yuya-takeyama/mvsync/pkg/index"
)

// Client issues commands over a session. It is not safe for concurrent use;
// every call blocks until its full response has been read.
type Client struct {
	w *bufio.Writer
	r *bufio.Reader
}

// NewClient creates a client writing commands to w and reading responses from r
func NewClient(w io.Writer, r io.Reader) *Client {
	return &Client{
		w: bufio.NewWriter(w),
		r: bufio.NewReader(r),
	}
}

// Checksum asks for the content digest of path
func (c *Client) Checksum(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	if err := c.send(CmdChecksum + " " + path); err != nil {
		return "", err
	}

	line, err := readLine(c.r)
	if err != nil {
		return "", err
	}
	if err := remoteErr(CmdChecksum, line); err != nil {
		return "", err
	}

	sum, ok := strings.CutPrefix(line, respOK+" ")
	if !ok || sum == "" || strings.Contains(sum, " ") {
		return "", malformed("checksum response %q", line)
	}
	return sum, nil
}

// Metadata asks for the index of the directory at root
func (c *Client) Metadata(root string) (*index.Index, error) {
	if err := ValidatePath(root); err != nil {
		return nil, err
	}
	if err := c.send(CmdMetadata + " " + root); err != nil {
		return nil, err
	}

	line, err := readLine(c.r)
	if err != nil {
		return nil, err
	}
	if err := remoteErr(CmdMetadata, line); err != nil {
		return nil, err
	}
	if line != respStart {
		return nil, malformed("metadata header %q", line)
	}

	return readMetadataEntries(c.r)
}

// Rename asks the server to rename from to to
func (c *Client) Rename(from, to string) error {
	if err := ValidatePath(from); err != nil {
		return err
	}
	if err := ValidatePath(to); err != nil {
		return err
	}
	if err := c.send(CmdRename + " " + from + renameSplit + to); err != nil {
		return err
	}

	line, err := readLine(c.r)
	if err != nil {
		return err
	}
	if err := remoteErr(CmdRename, line); err != nil {
		return err
	}
	if line != respOK {
		return malformed("rename response %q", line)
	}
	return nil
}

// Exit ends the session. The server sends no response.
func (c *Client) Exit() error {
	return c.send(CmdExit)
}

func (c *Client) send(command string) error {
	if _, err := c.w.WriteString(command + "\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

func remoteErr(command, line string) error {
	if line == respErr {
		return &RemoteError{Command: command}
	}
	if msg, ok := strings.CutPrefix(line, respErr+" "); ok {
		return &RemoteError{Command: command, Message: msg}
	}
	return nil
}
