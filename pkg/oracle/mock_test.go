package oracle

import (
	"context"
	"fmt"
	"io"

	"github.com/yuya-takeyama/mvsync/pkg/s3client"
)

// mockS3Client is a mock implementation of s3client.Client for testing
type mockS3Client struct {
	listObjectsFunc  func(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ItemMetadata, error)
	headObjectFunc   func(ctx context.Context, req *s3client.HeadObjectRequest) (*s3client.ObjectInfo, error)
	getObjectFunc    func(ctx context.Context, req *s3client.GetObjectRequest) (io.ReadCloser, error)
	copyObjectFunc   func(ctx context.Context, req *s3client.CopyObjectRequest) error
	deleteObjectFunc func(ctx context.Context, req *s3client.DeleteObjectRequest) error
}

func (m *mockS3Client) ListObjects(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ItemMetadata, error) {
	if m.listObjectsFunc != nil {
		return m.listObjectsFunc(ctx, req)
	}
	return nil, fmt.Errorf("ListObjects not implemented")
}

func (m *mockS3Client) HeadObject(ctx context.Context, req *s3client.HeadObjectRequest) (*s3client.ObjectInfo, error) {
	if m.headObjectFunc != nil {
		return m.headObjectFunc(ctx, req)
	}
	return nil, fmt.Errorf("HeadObject not implemented")
}

func (m *mockS3Client) GetObject(ctx context.Context, req *s3client.GetObjectRequest) (io.ReadCloser, error) {
	if m.getObjectFunc != nil {
		return m.getObjectFunc(ctx, req)
	}
	return nil, fmt.Errorf("GetObject not implemented")
}

func (m *mockS3Client) CopyObject(ctx context.Context, req *s3client.CopyObjectRequest) error {
	if m.copyObjectFunc != nil {
		return m.copyObjectFunc(ctx, req)
	}
	return fmt.Errorf("CopyObject not implemented")
}

func (m *mockS3Client) DeleteObject(ctx context.Context, req *s3client.DeleteObjectRequest) error {
	if m.deleteObjectFunc != nil {
		return m.deleteObjectFunc(ctx, req)
	}
	return fmt.Errorf("DeleteObject not implemented")
}
