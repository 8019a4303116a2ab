package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeObjectNotFound, "object not found")
	ErrObjectTooLarge = errors.New(errors.ErrCodeValidation, "object exceeds size limit")
	ErrInvalidKey     = errors.New(errors.ErrCodeValidation, "invalid object key")
)

const pdfContentType = "application/pdf"

// ObjectInfo describes a stored document.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// DocumentStore reads and writes source documents by object key.
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) (*ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*ObjectInfo, error)
}

type documentStore struct {
	client *MinIOClient
	logger logging.Logger
}

// NewDocumentStore returns the bucket-backed DocumentStore.
func NewDocumentStore(client *MinIOClient, logger logging.Logger) DocumentStore {
	if logger == nil {
		logger = client.logger
	}
	return &documentStore{client: client, logger: logger}
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return ErrInvalidKey.WithDetail(key)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func (s *documentStore) Put(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) (*ObjectInfo, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if size > s.client.config.MaxObjectSize {
		return nil, ErrObjectTooLarge.WithDetailf("%s: %d bytes", key, size)
	}

	info, err := s.client.api.PutObject(ctx, s.client.Bucket(), key, r, size, minio.PutObjectOptions{
		ContentType:  pdfContentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to upload document").WithDetail(key)
	}
	s.logger.Debug("document stored", logging.String("key", key), logging.Int64("size", info.Size))
	return &ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  pdfContentType,
		LastModified: info.LastModified,
		Metadata:     metadata,
	}, nil
}

// Get reads the whole object.  Objects above the configured size are
// rejected before download.
func (s *documentStore) Get(ctx context.Context, key string) ([]byte, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	limit := s.client.config.MaxObjectSize
	if info.Size > limit {
		return nil, ErrObjectTooLarge.WithDetailf("%s: %d bytes", key, info.Size)
	}

	obj, err := s.client.api.GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to open document").WithDetail(key)
	}
	defer obj.Close()

	var buf bytes.Buffer
	buf.Grow(int(info.Size))
	n, err := io.Copy(&buf, io.LimitReader(obj, limit+1))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to read document").WithDetail(key)
	}
	if n > limit {
		return nil, ErrObjectTooLarge.WithDetailf("%s: more than %d bytes", key, limit)
	}
	return buf.Bytes(), nil
}

func (s *documentStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	info, err := s.client.api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to stat document").WithDetail(key)
	}
	return toObjectInfo(info), nil
}

func (s *documentStore) Delete(ctx context.Context, key string) error {
	if err := s.client.checkOpen(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.client.api.RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to delete document").WithDetail(key)
	}
	return nil
}

func (s *documentStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	var out []*ObjectInfo
	for obj := range s.client.api.ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageUnavailable, "failed to list documents").WithDetail(prefix)
		}
		out = append(out, toObjectInfo(obj))
	}
	return out, nil
}

func toObjectInfo(info minio.ObjectInfo) *ObjectInfo {
	return &ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		Metadata:     info.UserMetadata,
	}
}

//Personal.AI order the ending
