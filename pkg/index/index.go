// Package index groups file inventories by fingerprint.
package index

import (
	"sort"

	"github.com/yuya-takeyama/mvsync/internal/walker"
)

// Fingerprint is the cheap identity of a file: its size and modification time.
// Equal fingerprints only make two files candidates for a match.
type Fingerprint struct {
	Size    uint64
	ModTime uint64
}

// Less orders fingerprints by size, then modification time
func (f Fingerprint) Less(other Fingerprint) bool {
	if f.Size != other.Size {
		return f.Size < other.Size
	}
	return f.ModTime < other.ModTime
}

// Entry is one file of an index
type Entry struct {
	Fingerprint Fingerprint
	Path        string
}

// Index maps fingerprints to relative paths in discovery order.
type Index struct {
	buckets map[Fingerprint][]string
	byPath  map[string]Fingerprint
	count   int
}

// New returns an empty index
func New() *Index {
	return &Index{
		buckets: make(map[Fingerprint][]string),
		byPath:  make(map[string]Fingerprint),
	}
}

// FromFiles builds an index from a walker inventory
func FromFiles(files []walker.FileInfo) *Index {
	idx := New()
	for _, f := range files {
		idx.Add(Fingerprint{Size: uint64(f.Size), ModTime: uint64(f.ModTime)}, f.RelPath)
	}
	return idx
}

// Add appends path to the bucket of fp
func (idx *Index) Add(fp Fingerprint, path string) {
	idx.buckets[fp] = append(idx.buckets[fp], path)
	idx.byPath[path] = fp
	idx.count++
}

// Paths returns the bucket of fp. The returned slice must not be modified.
func (idx *Index) Paths(fp Fingerprint) []string {
	return idx.buckets[fp]
}

// Lookup returns the fingerprint of path, whatever bucket it is in
func (idx *Index) Lookup(path string) (Fingerprint, bool) {
	fp, ok := idx.byPath[path]
	return fp, ok
}

// Has reports whether fp has a bucket
func (idx *Index) Has(fp Fingerprint) bool {
	_, ok := idx.buckets[fp]
	return ok
}

// Len returns the number of files in the index
func (idx *Index) Len() int {
	return idx.count
}

// Fingerprints returns every fingerprint in ascending order
func (idx *Index) Fingerprints() []Fingerprint {
	fps := make([]Fingerprint, 0, len(idx.buckets))
	for fp := range idx.buckets {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool {
		return fps[i].Less(fps[j])
	})
	return fps
}

// Entries flattens the index in fingerprint order, keeping bucket order
func (idx *Index) Entries() []Entry {
	entries := make([]Entry, 0, idx.count)
	for _, fp := range idx.Fingerprints() {
		for _, p := range idx.buckets[fp] {
			entries = append(entries, Entry{Fingerprint: fp, Path: p})
		}
	}
	return entries
}

// SizeOnly returns a copy whose fingerprints ignore modification time
func (idx *Index) SizeOnly() *Index {
	out := New()
	for _, e := range idx.Entries() {
		out.Add(Fingerprint{Size: e.Fingerprint.Size}, e.Path)
	}
	return out
}
