package planner

import (
	"fmt"

	"github.com/yuya-takeyama/mvsync/pkg/index"
)

const (
	reasonContent     = "same fingerprint and content"
	reasonFingerprint = "same fingerprint"
)

// Phase1JoinBuckets pairs the buckets present in both indexes, in ascending fingerprint order
func Phase1JoinBuckets(source, dest *index.Index) []BucketPair {
	pairs := []BucketPair{}
	for _, fp := range dest.Fingerprints() {
		if !source.Has(fp) {
			continue
		}
		pairs = append(pairs, BucketPair{
			Fingerprint: fp,
			Source:      source.Paths(fp),
			Dest:        dest.Paths(fp),
		})
	}
	return pairs
}

// ResolveBucket finds the source file each destination path of a bucket came from.
//
// A destination path that the source tree already holds with the same content is
// in place and yields nothing. Otherwise the first source candidate at another path
// whose content equals it is accepted. A nil equal accepts every candidate.
// The match is a rename unless the source file was already claimed by a rename
// in this bucket or the destination tree still holds it; those are copies.
// Paths are looked up in the whole trees, not only in the bucket, since a file
// kept at its path may have been touched.
func ResolveBucket(pair BucketPair, trees Trees, equal EqualFunc) ([]Item, error) {
	same := func(src, dst string) (bool, error) {
		if equal == nil {
			return true, nil
		}
		return equal(src, dst)
	}

	// atSamePath reports whether both trees hold path with the same content.
	// Without checksums only equal fingerprints count.
	atSamePath := func(path string) (bool, error) {
		srcFP, ok := trees.Source.Lookup(path)
		if !ok {
			return false, nil
		}
		dstFP, ok := trees.Dest.Lookup(path)
		if !ok {
			return false, nil
		}
		if equal == nil || srcFP.Size != dstFP.Size {
			return srcFP == dstFP, nil
		}
		return equal(path, path)
	}

	reason := reasonContent
	if equal == nil {
		reason = reasonFingerprint
	}

	items := []Item{}
	claimed := make(map[string]string)
	for _, d := range pair.Dest {
		ok, err := atSamePath(d)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}

		match := ""
		for _, c := range pair.Source {
			if c == d {
				continue
			}
			ok, err := same(c, d)
			if err != nil {
				return nil, err
			}
			if ok {
				match = c
				break
			}
		}
		if match == "" {
			continue
		}

		item := Item{
			Action: ActionRename,
			Source: match,
			Target: d,
			Size:   int64(pair.Fingerprint.Size),
			Reason: reason,
		}

		if renamedTo, ok := claimed[match]; ok {
			item.Action = ActionCopy
			item.Reason = fmt.Sprintf("source already renamed to %s", renamedTo)
		} else {
			ok, err := atSamePath(match)
			if err != nil {
				return nil, err
			}
			if ok {
				item.Action = ActionCopy
				item.Reason = "source still present in destination"
			}
		}

		if item.Action == ActionRename {
			claimed[match] = d
		}
		items = append(items, item)
	}

	return items, nil
}

// Phase3GeneratePlan orders the resolved items: renames first, each one after
// any rename that moves its target out of the way, then copies.
func Phase3GeneratePlan(resolved []Item) []Item {
	var renames, copies []Item
	for _, item := range resolved {
		if item.Action == ActionRename {
			renames = append(renames, item)
		} else {
			copies = append(copies, item)
		}
	}

	items := make([]Item, 0, len(resolved))
	items = append(items, orderRenames(renames)...)
	items = append(items, copies...)
	return items
}

// orderRenames delays a rename while its target is still the source of a
// pending rename. Cycles keep their order; the executor then fails on them.
func orderRenames(renames []Item) []Item {
	pending := append([]Item(nil), renames...)
	ordered := make([]Item, 0, len(renames))

	for len(pending) > 0 {
		sources := make(map[string]bool, len(pending))
		for _, r := range pending {
			sources[r.Source] = true
		}

		var blocked []Item
		for _, r := range pending {
			if sources[r.Target] {
				blocked = append(blocked, r)
				continue
			}
			ordered = append(ordered, r)
			delete(sources, r.Source)
		}

		if len(blocked) == len(pending) {
			return append(ordered, blocked...)
		}
		pending = blocked
	}

	return ordered
}

// RenameItems filters the plan down to what the executor applies
func RenameItems(items []Item) []Item {
	var renames []Item
	for _, item := range items {
		if item.Action == ActionRename {
			renames = append(renames, item)
		}
	}
	return renames
}
