package oracle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/yuya-takeyama/mvsync/internal/checksum"
	"github.com/yuya-takeyama/mvsync/internal/walker"
	"github.com/yuya-takeyama/mvsync/pkg/index"
	"github.com/yuya-takeyama/mvsync/pkg/phase"
)

// Local serves a tree on this machine with direct filesystem calls.
// It also backs the server side of the wire protocol.
type Local struct {
	excludes []string
}

// NewLocal creates a local oracle that ignores paths matching excludes
func NewLocal(excludes []string) *Local {
	return &Local{excludes: excludes}
}

func (l *Local) Metadata(ctx context.Context, root string) (*index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := expandHome(phase.Scan, root)
	if err != nil {
		return nil, err
	}

	w, err := walker.NewWalker(root, l.excludes)
	if err != nil {
		return nil, phase.Wrap(phase.Scan, root, err)
	}
	files, err := w.Walk()
	if err != nil {
		return nil, phase.Wrap(phase.Scan, root, err)
	}
	return index.FromFiles(files), nil
}

func (l *Local) Checksum(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := expandHome(phase.Checksum, path)
	if err != nil {
		return "", err
	}

	sum, err := checksum.CalculateFile(path)
	if err != nil {
		return "", phase.Wrap(phase.Checksum, path, err)
	}
	return sum, nil
}

func (l *Local) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := expandHome(phase.Rename, from)
	if err != nil {
		return err
	}
	to, err = expandHome(phase.Rename, to)
	if err != nil {
		return err
	}

	if _, err := os.Lstat(to); err == nil {
		return phase.Wrap(phase.Rename, to, ErrTargetExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return phase.Wrap(phase.Rename, to, fmt.Errorf("stat target: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return phase.Wrap(phase.Rename, to, fmt.Errorf("create parent directory: %w", err))
	}
	if err := os.Rename(from, to); err != nil {
		return phase.Wrap(phase.Rename, from, err)
	}
	return nil
}

// expandHome resolves a leading ~, which paths sent by a remote client keep
func expandHome(p phase.Phase, path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", phase.Wrap(p, path, err)
	}
	return expanded, nil
}

func (l *Local) Join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func (l *Local) Close() error {
	return nil
}
