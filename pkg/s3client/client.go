package s3client

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by HeadObject for missing keys
var ErrObjectNotFound = errors.New("object not found")

type ItemMetadata struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Client interface {
	ListObjects(ctx context.Context, req *ListObjectsRequest) ([]ItemMetadata, error)
	HeadObject(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error)
	GetObject(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error)
	CopyObject(ctx context.Context, req *CopyObjectRequest) error
	DeleteObject(ctx context.Context, req *DeleteObjectRequest) error
}

type ListObjectsRequest struct {
	Bucket string
	Prefix string
}

type HeadObjectRequest struct {
	Bucket string
	Key    string
}

type GetObjectRequest struct {
	Bucket string
	Key    string
}

type CopyObjectRequest struct {
	Bucket    string
	SourceKey string
	TargetKey string
}

type DeleteObjectRequest struct {
	Bucket string
	Key    string
}

type ObjectInfo struct {
	Size int64
	// ChecksumSHA256 is base64 encoded. Multipart uploads report a checksum of
	// part checksums suffixed with "-<parts>".
	ChecksumSHA256 string
}

// FullObjectSHA256 returns the SHA-256 of the whole object when S3 has one
func (o *ObjectInfo) FullObjectSHA256() (string, bool) {
	if o.ChecksumSHA256 == "" || strings.Contains(o.ChecksumSHA256, "-") {
		return "", false
	}
	return o.ChecksumSHA256, true
}
