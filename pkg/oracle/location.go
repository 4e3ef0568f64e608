package oracle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/yuya-takeyama/mvsync/internal/logging"
	"github.com/yuya-takeyama/mvsync/pkg/s3client"
)

// Kind says which oracle serves a root
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
	KindS3
)

func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindS3:
		return "s3"
	default:
		return "local"
	}
}

// Location is a parsed root argument
type Location struct {
	Kind Kind
	Host string // KindRemote only
	Root string
}

// ParseLocation classifies a root argument.
// "s3://bucket/prefix" is S3 and "host:path" is a tree reached over ssh.
// Anything else is a local path.
func ParseLocation(arg string) (Location, error) {
	if arg == "" {
		return Location{}, errors.New("empty root")
	}
	if strings.HasPrefix(arg, "s3://") {
		if _, _, err := s3client.ParseS3URI(arg); err != nil {
			return Location{}, err
		}
		return Location{Kind: KindS3, Root: arg}, nil
	}

	if filepath.VolumeName(arg) == "" {
		colon := strings.IndexByte(arg, ':')
		slash := strings.IndexByte(arg, '/')
		if colon > 0 && (slash < 0 || colon < slash) {
			root := arg[colon+1:]
			if root == "" {
				root = "."
			}
			return Location{Kind: KindRemote, Host: arg[:colon], Root: root}, nil
		}
	}

	return Location{Kind: KindLocal, Root: arg}, nil
}

func (l Location) String() string {
	if l.Kind == KindRemote {
		return l.Host + ":" + l.Root
	}
	return l.Root
}

// Endpoint is an oracle bound to the root it serves
type Endpoint struct {
	Oracle   Oracle
	Root     string
	Location Location
}

// Options controls how endpoints are opened
type Options struct {
	Excludes []string
	// External serves a local source from a child process
	External    bool
	SSH         SSHOptions
	NewS3Client func(ctx context.Context) (s3client.Client, error)
	Logger      *logging.Logger
}

// OpenPair opens the source and destination oracles.
// At most one of them may be backed by a subprocess. On error nothing stays open.
func OpenPair(ctx context.Context, srcArg, dstArg string, opts Options) (src, dst *Endpoint, err error) {
	srcLoc, err := ParseLocation(srcArg)
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", err)
	}
	dstLoc, err := ParseLocation(dstArg)
	if err != nil {
		return nil, nil, fmt.Errorf("destination: %w", err)
	}

	srcSubprocess := srcLoc.Kind == KindRemote || (srcLoc.Kind == KindLocal && opts.External)
	if srcSubprocess && dstLoc.Kind == KindRemote {
		return nil, nil, errors.New("only one oracle per run can be served by another process")
	}

	src, err = open(ctx, srcLoc, opts.External, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", err)
	}
	dst, err = open(ctx, dstLoc, false, opts)
	if err != nil {
		_ = src.Oracle.Close()
		return nil, nil, fmt.Errorf("destination: %w", err)
	}
	return src, dst, nil
}

func open(ctx context.Context, loc Location, external bool, opts Options) (*Endpoint, error) {
	ep := &Endpoint{Root: loc.Root, Location: loc}

	switch loc.Kind {
	case KindS3:
		if opts.NewS3Client == nil {
			return nil, errors.New("S3 is not configured")
		}
		client, err := opts.NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		ep.Oracle = NewS3(client, opts.Excludes)

	case KindRemote:
		cmd, err := SSHCommand(ctx, loc.Host, opts.SSH, opts.Excludes)
		if err != nil {
			return nil, err
		}
		remote, err := StartRemote(cmd, opts.Logger)
		if err != nil {
			return nil, err
		}
		ep.Oracle = remote

	default:
		expanded, err := homedir.Expand(loc.Root)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, err
		}
		ep.Root = abs
		if !external {
			ep.Oracle = NewLocal(opts.Excludes)
			break
		}
		cmd, err := LocalServerCommand(ctx, opts.Excludes)
		if err != nil {
			return nil, err
		}
		remote, err := StartRemote(cmd, opts.Logger)
		if err != nil {
			return nil, err
		}
		ep.Oracle = remote
	}

	return ep, nil
}

// compile-time checks
var (
	_ Oracle = (*Local)(nil)
	_ Oracle = (*Remote)(nil)
	_ Oracle = (*S3)(nil)
)
