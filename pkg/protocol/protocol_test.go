package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/yuya-takeyama/mvsync/pkg/index"
)

// mockBackend is a Backend with canned answers
type mockBackend struct {
	metadataFunc func(root string) (*index.Index, error)
	checksumFunc func(path string) (string, error)
	renameFunc   func(from, to string) error
}

func (m *mockBackend) Metadata(ctx context.Context, root string) (*index.Index, error) {
	if m.metadataFunc != nil {
		return m.metadataFunc(root)
	}
	return nil, fmt.Errorf("Metadata not implemented")
}

func (m *mockBackend) Checksum(ctx context.Context, path string) (string, error) {
	if m.checksumFunc != nil {
		return m.checksumFunc(path)
	}
	return "", fmt.Errorf("Checksum not implemented")
}

func (m *mockBackend) Rename(ctx context.Context, from, to string) error {
	if m.renameFunc != nil {
		return m.renameFunc(from, to)
	}
	return fmt.Errorf("Rename not implemented")
}

func sampleIndex() *index.Index {
	idx := index.New()
	idx.Add(index.Fingerprint{Size: 3, ModTime: 100}, "file1")
	idx.Add(index.Fingerprint{Size: 5, ModTime: 100}, "dir/with space")
	idx.Add(index.Fingerprint{Size: 5, ModTime: 100}, "odd\nname")
	return idx
}

func TestServe(t *testing.T) {
	backend := &mockBackend{
		metadataFunc: func(root string) (*index.Index, error) {
			if root == "/data" {
				return sampleIndex(), nil
			}
			return nil, fmt.Errorf("stat root: no such directory")
		},
		checksumFunc: func(path string) (string, error) {
			if path == "/data/file1" {
				return "abc123", nil
			}
			return "", fmt.Errorf("open file:\nmissing")
		},
		renameFunc: func(from, to string) error {
			if from == "/data/a" && to == "/data/b" {
				return nil
			}
			return fmt.Errorf("target exists")
		},
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "checksum",
			input: "checksum /data/file1\nexit\n",
			want:  "OK abc123\n",
		},
		{
			name:  "checksum failure keeps the session open",
			input: "checksum /data/missing\nchecksum /data/file1\nexit\n",
			want:  "ERR open file: missing\nOK abc123\n",
		},
		{
			name:  "metadata",
			input: "metadata /data\nexit\n",
			want:  "OK START\n3 100 file1\x00\n5 100 dir/with space\x00\n5 100 odd\nname\x00\nEND\n",
		},
		{
			name:  "metadata failure",
			input: "metadata /nope\n",
			want:  "ERR stat root: no such directory\n",
		},
		{
			name:  "rename",
			input: "rename /data/a\x00/data/b\nrename /data/a\x00/data/c\nexit\n",
			want:  "OK\nERR target exists\n",
		},
		{
			name:  "rename with one path",
			input: "rename /data/a\nexit\n",
			want:  "ERR rename needs two NUL separated paths\n",
		},
		{
			name:  "unknown command",
			input: "frobnicate x\nchecksum /data/file1\n",
			want:  "ERR Invalid command \"frobnicate x\"\nOK abc123\n",
		},
		{
			name:  "command without argument",
			input: "checksum\nexit\n",
			want:  "ERR Invalid command \"checksum\"\n",
		},
		{
			name:  "exit stops reading",
			input: "exit\nchecksum /data/file1\n",
			want:  "",
		},
		{
			name:  "last command without newline",
			input: "checksum /data/file1",
			want:  "OK abc123\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			s := NewServer(backend, nil)
			if err := s.Serve(context.Background(), strings.NewReader(tt.input), &out); err != nil {
				t.Fatalf("Serve() error = %v", err)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("Serve() wrote %q, want %q", got, tt.want)
			}
		})
	}
}

// session connects a client to a server running on pipes
func session(t *testing.T, backend Backend) (*Client, <-chan error) {
	t.Helper()
	cmdR, cmdW := io.Pipe()
	respR, respW := io.Pipe()

	done := make(chan error, 1)
	go func() {
		err := NewServer(backend, nil).Serve(context.Background(), cmdR, respW)
		respW.Close()
		done <- err
	}()

	t.Cleanup(func() {
		cmdW.Close()
		respR.Close()
	})
	return NewClient(cmdW, respR), done
}

func TestClientServerRoundTrip(t *testing.T) {
	var renamed []string
	backend := &mockBackend{
		metadataFunc: func(root string) (*index.Index, error) { return sampleIndex(), nil },
		checksumFunc: func(path string) (string, error) { return "digest-of-" + strings.ReplaceAll(path, " ", "_"), nil },
		renameFunc: func(from, to string) error {
			renamed = append(renamed, from+"->"+to)
			return nil
		},
	}

	client, done := session(t, backend)

	idx, err := client.Metadata("/root dir")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if !reflect.DeepEqual(idx.Entries(), sampleIndex().Entries()) {
		t.Errorf("Metadata() = %v, want %v", idx.Entries(), sampleIndex().Entries())
	}

	sum, err := client.Checksum("/root dir/file1")
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if sum != "digest-of-/root_dir/file1" {
		t.Errorf("Checksum() = %q", sum)
	}

	if err := client.Rename("/a b", "/c d"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if !reflect.DeepEqual(renamed, []string{"/a b->/c d"}) {
		t.Errorf("renamed = %v", renamed)
	}

	if err := client.Exit(); err != nil {
		t.Fatalf("Exit() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestClientRemoteError(t *testing.T) {
	backend := &mockBackend{
		checksumFunc: func(path string) (string, error) { return "", fmt.Errorf("read: input/output error") },
	}
	client, _ := session(t, backend)

	_, err := client.Checksum("/x")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Checksum() error = %v, want *RemoteError", err)
	}
	if remote.Command != CmdChecksum || remote.Message != "read: input/output error" {
		t.Errorf("RemoteError = %+v", remote)
	}

	// the session survives a failed command
	backend.checksumFunc = func(path string) (string, error) { return "ok", nil }
	if sum, err := client.Checksum("/x"); err != nil || sum != "ok" {
		t.Errorf("Checksum() after error = %q, %v", sum, err)
	}
}

func TestClientMalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
		call     func(c *Client) error
		wantErr  error
	}{
		{
			name:     "checksum without digest",
			response: "OK\n",
			call:     func(c *Client) error { _, err := c.Checksum("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "checksum garbage",
			response: "HELLO\n",
			call:     func(c *Client) error { _, err := c.Checksum("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "metadata bad header",
			response: "OK\n",
			call:     func(c *Client) error { _, err := c.Metadata("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "metadata entry missing path",
			response: "OK START\n3 100\x00\nEND\n",
			call:     func(c *Client) error { _, err := c.Metadata("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "metadata entry bad size",
			response: "OK START\nx 100 a\x00\nEND\n",
			call:     func(c *Client) error { _, err := c.Metadata("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "metadata entry without newline",
			response: "OK START\n3 100 a\x00END\n",
			call:     func(c *Client) error { _, err := c.Metadata("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "metadata bad trailer",
			response: "OK START\nEOF\n",
			call:     func(c *Client) error { _, err := c.Metadata("/x"); return err },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "metadata truncated",
			response: "OK START\n3 100 a\x00\n",
			call:     func(c *Client) error { _, err := c.Metadata("/x"); return err },
			wantErr:  io.ErrUnexpectedEOF,
		},
		{
			name:     "connection closed",
			response: "",
			call:     func(c *Client) error { _, err := c.Checksum("/x"); return err },
			wantErr:  io.ErrUnexpectedEOF,
		},
		{
			name:     "rename unexpected reply",
			response: "OK START\n",
			call:     func(c *Client) error { return c.Rename("/a", "/b") },
			wantErr:  ErrMalformedResponse,
		},
		{
			name:     "path with newline",
			response: "",
			call:     func(c *Client) error { _, err := c.Checksum("/a\nb"); return err },
			wantErr:  ErrUnencodablePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(io.Discard, strings.NewReader(tt.response))
			err := tt.call(c)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientEmptyMetadata(t *testing.T) {
	c := NewClient(io.Discard, strings.NewReader("OK START\nEND\n"))
	idx, err := c.Metadata("/empty")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", idx.Len())
	}
}
