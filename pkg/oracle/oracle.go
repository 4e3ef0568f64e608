// Package oracle answers metadata and checksum questions about one directory
// tree, wherever that tree lives.
package oracle

import (
	"context"
	"errors"

	"github.com/yuya-takeyama/mvsync/pkg/index"
)

// Oracle exposes a tree to the planner and the executor.
//
// Implementations are used from a single goroutine. Close releases whatever
// the oracle holds and must be called on every exit path.
type Oracle interface {
	// Metadata scans the tree at root
	Metadata(ctx context.Context, root string) (*index.Index, error)
	// Checksum returns the hex content digest of the file at path
	Checksum(ctx context.Context, path string) (string, error)
	// Rename moves from to to. It fails with ErrTargetExists instead of replacing a file.
	Rename(ctx context.Context, from, to string) error
	// Join resolves a slash separated relative path against root
	Join(root, rel string) string
	Close() error
}

var (
	// ErrTargetExists is returned by Rename when something already occupies the target
	ErrTargetExists = errors.New("rename target already exists")

	// ErrTransport is returned when the connection to an oracle server breaks
	ErrTransport = errors.New("oracle transport failed")

	// ErrTooLargeToRename is returned when a store cannot move a file of that size
	ErrTooLargeToRename = errors.New("file too large to rename")

	// ErrClosed is returned for calls made after Close
	ErrClosed = errors.New("oracle is closed")
)
