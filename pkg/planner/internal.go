package planner

import "github.com/yuya-takeyama/mvsync/pkg/index"

// BucketPair holds the paths sharing a fingerprint on both sides
type BucketPair struct {
	Fingerprint index.Fingerprint
	Source      []string
	Dest        []string
}

type side int

const (
	sourceSide side = iota
	destSide
)

func (s side) String() string {
	if s == destSide {
		return "destination"
	}
	return "source"
}

type checksumKey struct {
	side side
	path string
}

// EqualFunc reports whether the source file at src and the destination file
// at dst have the same content. Paths are relative to their roots.
type EqualFunc func(src, dst string) (bool, error)

// Trees gives path lookups into the whole source and destination indexes
type Trees struct {
	Source *index.Index
	Dest   *index.Index
}
