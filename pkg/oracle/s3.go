package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yuya-takeyama/mvsync/internal/checksum"
	"github.com/yuya-takeyama/mvsync/internal/walker"
	"github.com/yuya-takeyama/mvsync/pkg/index"
	"github.com/yuya-takeyama/mvsync/pkg/phase"
	"github.com/yuya-takeyama/mvsync/pkg/s3client"
)

// S3 serves a tree stored under an S3 prefix. Roots and paths are s3:// URIs.
//
// Modification times come from LastModified, so a fingerprint only matches a
// local file whose mtime equals the upload time. Renames are a copy followed by
// a delete and are not atomic. A single CopyObject call is limited to 5 GiB, so
// larger objects are refused by CheckRenameSize before any rename runs.
type S3 struct {
	client   s3client.Client
	excludes []string
}

const maxCopyObjectSize = 5 << 30

// NewS3 creates an S3 oracle that ignores keys matching excludes
func NewS3(client s3client.Client, excludes []string) *S3 {
	return &S3{client: client, excludes: excludes}
}

func (s *S3) Metadata(ctx context.Context, root string) (*index.Index, error) {
	bucket, prefix, err := s3client.ParseS3URI(root)
	if err != nil {
		return nil, phase.Wrap(phase.Scan, root, err)
	}

	items, err := s.client.ListObjects(ctx, &s3client.ListObjectsRequest{
		Bucket: bucket,
		Prefix: s3client.ListPrefix(prefix),
	})
	if err != nil {
		return nil, phase.Wrap(phase.Scan, root, err)
	}

	idx := index.New()
	for _, item := range items {
		rel, ok := s3client.RelativeKey(item.Key, prefix)
		// Directory markers are not files
		if !ok || rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		if walker.IsExcluded(rel, s.excludes) {
			continue
		}
		if item.Size < 0 {
			continue
		}
		idx.Add(index.Fingerprint{
			Size:    uint64(item.Size),
			ModTime: uint64(item.ModTime.Unix()),
		}, rel)
	}
	return idx, nil
}

// CheckRenameSize rejects objects too large for one CopyObject call
func (s *S3) CheckRenameSize(size int64) error {
	if size > maxCopyObjectSize {
		return fmt.Errorf("%w: %d bytes is over the %d byte CopyObject limit", ErrTooLargeToRename, size, int64(maxCopyObjectSize))
	}
	return nil
}

func (s *S3) Checksum(ctx context.Context, path string) (string, error) {
	bucket, key, err := s3client.ParseS3Object(path)
	if err != nil {
		return "", phase.Wrap(phase.Checksum, path, err)
	}

	info, err := s.client.HeadObject(ctx, &s3client.HeadObjectRequest{Bucket: bucket, Key: key})
	if err != nil {
		return "", phase.Wrap(phase.Checksum, path, err)
	}
	if encoded, ok := info.FullObjectSHA256(); ok {
		if sum, err := checksum.FromBase64(encoded); err == nil {
			return sum, nil
		}
	}

	body, err := s.client.GetObject(ctx, &s3client.GetObjectRequest{Bucket: bucket, Key: key})
	if err != nil {
		return "", phase.Wrap(phase.Checksum, path, err)
	}
	defer body.Close()

	sum, err := checksum.Calculate(body)
	if err != nil {
		return "", phase.Wrap(phase.Checksum, path, err)
	}
	return sum, nil
}

func (s *S3) Rename(ctx context.Context, from, to string) error {
	fromBucket, fromKey, err := s3client.ParseS3Object(from)
	if err != nil {
		return phase.Wrap(phase.Rename, from, err)
	}
	toBucket, toKey, err := s3client.ParseS3Object(to)
	if err != nil {
		return phase.Wrap(phase.Rename, to, err)
	}
	if fromBucket != toBucket {
		return phase.Wrap(phase.Rename, from, fmt.Errorf("cannot rename across buckets: %s -> %s", fromBucket, toBucket))
	}

	_, err = s.client.HeadObject(ctx, &s3client.HeadObjectRequest{Bucket: toBucket, Key: toKey})
	switch {
	case err == nil:
		return phase.Wrap(phase.Rename, to, ErrTargetExists)
	case !errors.Is(err, s3client.ErrObjectNotFound):
		return phase.Wrap(phase.Rename, to, err)
	}

	if err := s.client.CopyObject(ctx, &s3client.CopyObjectRequest{
		Bucket:    fromBucket,
		SourceKey: fromKey,
		TargetKey: toKey,
	}); err != nil {
		return phase.Wrap(phase.Rename, from, err)
	}
	if err := s.client.DeleteObject(ctx, &s3client.DeleteObjectRequest{Bucket: fromBucket, Key: fromKey}); err != nil {
		return phase.Wrap(phase.Rename, from, fmt.Errorf("copied to %s but delete failed: %w", to, err))
	}
	return nil
}

func (s *S3) Join(root, rel string) string {
	return s3client.JoinURI(root, rel)
}

func (s *S3) Close() error {
	return nil
}
