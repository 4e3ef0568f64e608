package planner

import (
	"context"

	"github.com/yuya-takeyama/mvsync/pkg/logger"
	"github.com/yuya-takeyama/mvsync/pkg/oracle"
)

type Planner interface {
	Plan(ctx context.Context, source Source, dest Destination, opts Options) ([]Item, error)
}

// Source is the old tree. Renames are applied to it.
type Source struct {
	Oracle oracle.Oracle
	Root   string
}

// Destination is the tree whose layout the source is brought to
type Destination struct {
	Oracle oracle.Oracle
	Root   string
}

type Options struct {
	// NoChecksums accepts the first fingerprint match without reading content
	NoChecksums bool
	// SizeOnly drops modification times from fingerprints
	SizeOnly bool
	Logger   logger.Logger
}

type Action string

const (
	ActionRename Action = "rename"
	ActionCopy   Action = "copy"
)

// Item is one correspondence. Source and Target are slash separated and
// relative to the source root; Target is the path the file has in the destination.
type Item struct {
	Action Action
	Source string
	Target string
	Size   int64
	Reason string
}
