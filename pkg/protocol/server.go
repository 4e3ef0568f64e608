package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yuya-takeyama/mvsync/internal/logging"
	"github.com/yuya-takeyama/mvsync/pkg/index"
)

// Backend serves the commands of a session against a filesystem
type Backend interface {
	Metadata(ctx context.Context, root string) (*index.Index, error)
	Checksum(ctx context.Context, path string) (string, error)
	Rename(ctx context.Context, from, to string) error
}

// Server answers one session at a time, one command at a time.
type Server struct {
	backend Backend
	logger  *logging.Logger
}

// NewServer creates a server for backend
func NewServer(backend Backend, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		backend: backend,
		logger:  logger,
	}
}

// Serve reads commands from r and writes responses to w until an exit command
// or the end of r. Only failures to read or write the streams are returned.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	in := bufio.NewReader(r)
	out := bufio.NewWriter(w)

	for {
		line, err := in.ReadString(lineEnd)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read command: %w", err)
		}
		if line == "" && err != nil {
			// Peer closed the session without exit
			return nil
		}

		command := strings.TrimRight(line, "\r\n")
		if command == CmdExit {
			s.logger.Debug("session closed by peer")
			return nil
		}

		if werr := s.handle(ctx, out, command); werr != nil {
			return fmt.Errorf("write response: %w", werr)
		}
		if werr := out.Flush(); werr != nil {
			return fmt.Errorf("write response: %w", werr)
		}

		if err != nil {
			return nil
		}
	}
}

func (s *Server) handle(ctx context.Context, w *bufio.Writer, command string) error {
	name, arg, _ := strings.Cut(command, " ")
	s.logger.Debug("command %s", name)

	switch {
	case name == CmdChecksum && arg != "":
		sum, err := s.backend.Checksum(ctx, arg)
		if err != nil {
			return writeErr(w, err)
		}
		_, err = fmt.Fprintf(w, "%s %s\n", respOK, sum)
		return err

	case name == CmdMetadata && arg != "":
		idx, err := s.backend.Metadata(ctx, arg)
		if err != nil {
			return writeErr(w, err)
		}
		return writeMetadata(w, idx)

	case name == CmdRename && arg != "":
		from, to, ok := strings.Cut(arg, renameSplit)
		if !ok || from == "" || to == "" {
			return writeErr(w, errors.New("rename needs two NUL separated paths"))
		}
		if err := s.backend.Rename(ctx, from, to); err != nil {
			return writeErr(w, err)
		}
		_, err := w.WriteString(respOK + "\n")
		return err

	default:
		_, err := fmt.Fprintf(w, "%s %s %q\n", respErr, invalidCmd, command)
		return err
	}
}

func writeErr(w *bufio.Writer, cause error) error {
	_, err := fmt.Fprintf(w, "%s %s\n", respErr, oneLine(cause.Error()))
	return err
}
