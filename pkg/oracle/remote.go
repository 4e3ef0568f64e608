package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/yuya-takeyama/mvsync/internal/checksum"
	"github.com/yuya-takeyama/mvsync/internal/logging"
	"github.com/yuya-takeyama/mvsync/pkg/index"
	"github.com/yuya-takeyama/mvsync/pkg/phase"
	"github.com/yuya-takeyama/mvsync/pkg/protocol"
)

// ServerFlag puts the executable into oracle server mode
const ServerFlag = "--server"

// Remote delegates every call to a server process over its stdin and stdout.
//
// The process is started by StartRemote and lives until Close, which sends
// exit and reaps it. A broken pipe or a dead process fails the current call;
// there is no reconnect.
type Remote struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	client *protocol.Client
	logger *logging.Logger
	closed bool
}

// StartRemote starts cmd and speaks the wire protocol with it.
// The process inherits stderr unless cmd.Stderr is already set.
func StartRemote(cmd *exec.Cmd, logger *logging.Logger) (*Remote, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrTransport, cmd.Path, err)
	}
	logger.Debug("started oracle server: %s", strings.Join(cmd.Args, " "))

	return &Remote{
		cmd:    cmd,
		stdin:  stdin,
		client: protocol.NewClient(stdin, stdout),
		logger: logger,
	}, nil
}

func (r *Remote) Metadata(ctx context.Context, root string) (*index.Index, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	idx, err := r.client.Metadata(root)
	if err != nil {
		return nil, r.fail(phase.Scan, root, err)
	}

	// Paths that cannot travel in a command can never be checksummed or renamed
	usable := index.New()
	for _, e := range idx.Entries() {
		if err := protocol.ValidatePath(e.Path); err != nil {
			r.logger.Warn("skipping %q: %v", e.Path, err)
			continue
		}
		usable.Add(e.Fingerprint, e.Path)
	}
	return usable, nil
}

func (r *Remote) Checksum(ctx context.Context, p string) (string, error) {
	if err := r.ready(ctx); err != nil {
		return "", err
	}

	sum, err := r.client.Checksum(p)
	if err != nil {
		return "", r.fail(phase.Checksum, p, err)
	}
	// Digests from both sides are compared as strings
	if !checksum.IsDigest(sum) {
		return "", phase.Wrap(phase.Protocol, p, fmt.Errorf("%w: %q is not a SHA-256 digest", protocol.ErrMalformedResponse, sum))
	}
	return sum, nil
}

func (r *Remote) Rename(ctx context.Context, from, to string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}

	if err := r.client.Rename(from, to); err != nil {
		return r.fail(phase.Rename, from, err)
	}
	return nil
}

// Join uses slash separated paths; servers are reached on POSIX hosts
func (r *Remote) Join(root, rel string) string {
	return path.Join(root, rel)
}

// Close ends the session and waits for the process to exit
func (r *Remote) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	// The process may already be gone; Wait reports why
	if err := r.client.Exit(); err != nil {
		r.logger.Debug("send exit: %v", err)
	}
	_ = r.stdin.Close()

	if err := r.cmd.Wait(); err != nil {
		return fmt.Errorf("oracle server: %w", err)
	}
	return nil
}

func (r *Remote) ready(ctx context.Context) error {
	if r.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// fail attributes err to the phase that failed
func (r *Remote) fail(p phase.Phase, subject string, err error) error {
	var remote *protocol.RemoteError
	switch {
	case errors.As(err, &remote):
		return phase.Wrap(p, subject, err)
	case errors.Is(err, protocol.ErrMalformedResponse), errors.Is(err, protocol.ErrUnencodablePath):
		return phase.Wrap(phase.Protocol, subject, err)
	default:
		return phase.Wrap(phase.Protocol, subject, fmt.Errorf("%w: %w", ErrTransport, err))
	}
}

// LocalServerCommand re-invokes this executable in server mode
func LocalServerCommand(ctx context.Context, excludes []string) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return exec.CommandContext(ctx, exe, ServerArgs(excludes)...), nil
}

// SSHOptions controls how a server is started on another host
type SSHOptions struct {
	Command       string // ssh client, may carry options ("ssh -i key")
	Port          int
	RemoteCommand string // mvsync on the remote host
}

// SSHCommand runs the server on host through a remote shell
func SSHCommand(ctx context.Context, host string, opts SSHOptions, excludes []string) (*exec.Cmd, error) {
	sshArgs := strings.Fields(opts.Command)
	if len(sshArgs) == 0 {
		sshArgs = []string{"ssh"}
	}
	if host == "" {
		return nil, errors.New("ssh host is empty")
	}
	remoteCommand := opts.RemoteCommand
	if remoteCommand == "" {
		remoteCommand = "mvsync"
	}

	args := append([]string{}, sshArgs[1:]...)
	if opts.Port != 0 && opts.Port != 22 {
		args = append(args, "-p", strconv.Itoa(opts.Port))
	}
	args = append(args, host, remoteCommand)
	// The remote shell re-parses everything after the host
	for _, a := range ServerArgs(excludes) {
		args = append(args, shellQuote(a))
	}

	return exec.CommandContext(ctx, sshArgs[0], args...), nil
}

// ServerArgs are the arguments that start server mode
func ServerArgs(excludes []string) []string {
	args := []string{ServerFlag}
	for _, e := range excludes {
		args = append(args, "--exclude", e)
	}
	return args
}

func shellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
