package s3client

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ParseS3URI parses an S3 URI into bucket and prefix.
// The prefix is cleaned and carries no trailing slash.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URI: must start with s3://")
	}

	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)

	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) > 1 {
		prefix = strings.Trim(path.Clean("/"+parts[1]), "/")
	}

	return bucket, prefix, nil
}

// JoinURI appends a slash separated relative path to an S3 URI
func JoinURI(uri, rel string) string {
	return strings.TrimRight(uri, "/") + "/" + rel
}

// ListPrefix is the prefix to list so that "data" does not match "database/..."
func ListPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// trimS3KeyPrefix removes "prefix/" from key; keys outside the prefix are returned as is
func trimS3KeyPrefix(key, prefix string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix+"/")
}

// RelativeKey returns key relative to prefix, and false for keys outside it
func RelativeKey(key, prefix string) (string, bool) {
	if prefix == "" {
		return key, true
	}
	if !strings.HasPrefix(key, prefix+"/") {
		return "", false
	}
	return trimS3KeyPrefix(key, prefix), true
}

// escapeCopySource builds the URL encoded "bucket/key" CopyObject expects
func escapeCopySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// ParseS3Object splits an object URI into bucket and key. The key is kept verbatim.
func ParseS3Object(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URI: must start with s3://")
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing bucket name")
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid S3 object URI: missing key: %s", uri)
	}
	return bucket, key, nil
}
