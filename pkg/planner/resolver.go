package planner

import (
	"context"
	"fmt"

	"github.com/yuya-takeyama/mvsync/internal/checksum"
	"github.com/yuya-takeyama/mvsync/pkg/logger"
)

// MatchResolver plans the renames that turn the source layout into the destination layout
type MatchResolver struct {
	logger logger.Logger
}

func NewMatchResolver(l logger.Logger) *MatchResolver {
	if l == nil {
		l = &logger.NullLogger{}
	}
	return &MatchResolver{logger: l}
}

func (r *MatchResolver) Plan(ctx context.Context, source Source, dest Destination, opts Options) ([]Item, error) {
	log := r.logger
	if opts.Logger != nil {
		log = opts.Logger
	}

	log.PhaseStart("scan", 2)
	sourceIdx, err := source.Oracle.Metadata(ctx, source.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	destIdx, err := dest.Oracle.Metadata(ctx, dest.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan destination: %w", err)
	}
	log.Debug("source %s: %d files, destination %s: %d files", source.Root, sourceIdx.Len(), dest.Root, destIdx.Len())
	log.PhaseComplete("scan", sourceIdx.Len()+destIdx.Len())

	if opts.SizeOnly {
		sourceIdx = sourceIdx.SizeOnly()
		destIdx = destIdx.SizeOnly()
	}

	pairs := Phase1JoinBuckets(sourceIdx, destIdx)

	resolved, err := r.Phase2Resolve(ctx, pairs, Trees{Source: sourceIdx, Dest: destIdx}, source, dest, opts, log)
	if err != nil {
		return nil, err
	}

	return Phase3GeneratePlan(resolved), nil
}

// Phase2Resolve resolves every shared bucket, reading each file's checksum at most once
func (r *MatchResolver) Phase2Resolve(ctx context.Context, pairs []BucketPair, trees Trees, source Source, dest Destination, opts Options, log logger.Logger) ([]Item, error) {
	memo := newChecksumMemo(source, dest)

	var equal EqualFunc
	if !opts.NoChecksums {
		equal = func(src, dst string) (bool, error) {
			return memo.equal(ctx, src, dst)
		}
	}

	log.PhaseStart("checksum", len(pairs))
	resolved := []Item{}
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := ResolveBucket(pair, trees, equal)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			log.Debug("%s %s -> %s (%s)", item.Action, item.Source, item.Target, item.Reason)
		}
		resolved = append(resolved, items...)
	}
	log.PhaseComplete("checksum", len(memo.sums))

	return resolved, nil
}

type checksumMemo struct {
	source Source
	dest   Destination
	sums   map[checksumKey]string
}

func newChecksumMemo(source Source, dest Destination) *checksumMemo {
	return &checksumMemo{
		source: source,
		dest:   dest,
		sums:   make(map[checksumKey]string),
	}
}

func (m *checksumMemo) equal(ctx context.Context, src, dst string) (bool, error) {
	a, err := m.get(ctx, sourceSide, src)
	if err != nil {
		return false, err
	}
	b, err := m.get(ctx, destSide, dst)
	if err != nil {
		return false, err
	}
	return checksum.CompareChecksums(a, b), nil
}

func (m *checksumMemo) get(ctx context.Context, s side, rel string) (string, error) {
	key := checksumKey{side: s, path: rel}
	if sum, ok := m.sums[key]; ok {
		return sum, nil
	}

	var (
		sum string
		err error
	)
	if s == sourceSide {
		sum, err = m.source.Oracle.Checksum(ctx, m.source.Oracle.Join(m.source.Root, rel))
	} else {
		sum, err = m.dest.Oracle.Checksum(ctx, m.dest.Oracle.Join(m.dest.Root, rel))
	}
	if err != nil {
		return "", fmt.Errorf("failed to checksum %s file %s: %w", s, rel, err)
	}

	m.sums[key] = sum
	return sum, nil
}

var _ Planner = (*MatchResolver)(nil)
