package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/DocRev-Intelligence/internal/config"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ObjectAPI is the subset of the MinIO client the document store uses.
// GetObject returns a plain reader so that fakes can serve bytes.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

type sdkAPI struct {
	*minio.Client
}

func (a sdkAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}

// MinIOConfig configures the client.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	Bucket        string
	MaxObjectSize int64
}

// ConfigFrom maps the application storage section.
func ConfigFrom(m config.MinIOConfig) *MinIOConfig {
	return &MinIOConfig{
		Endpoint:      m.Endpoint,
		AccessKey:     m.AccessKey,
		SecretKey:     m.SecretKey,
		UseSSL:        m.UseSSL,
		Region:        m.Region,
		Bucket:        m.Bucket,
		MaxObjectSize: m.MaxObjectSize,
	}
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "docrev-documents"
	}
	if cfg.MaxObjectSize == 0 {
		cfg.MaxObjectSize = 200 << 20
	}
}

// MinIOClient holds the SDK client and the documents bucket.
type MinIOClient struct {
	api    ObjectAPI
	config *MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewMinIOClient connects and makes sure the documents bucket exists.
func NewMinIOClient(ctx context.Context, cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.NewValidation("minio endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to create minio client")
	}

	c := NewMinIOClientWithAPI(sdkAPI{client}, cfg, log)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewMinIOClientWithAPI wraps an existing ObjectAPI.
func NewMinIOClientWithAPI(api ObjectAPI, cfg *MinIOConfig, log logging.Logger) *MinIOClient {
	if cfg == nil {
		cfg = &MinIOConfig{}
	}
	applyDefaults(cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOClient{api: api, config: cfg, logger: log}
}

// EnsureBucket creates the documents bucket when missing.
func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to check bucket").WithDetail(c.config.Bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageUnavailable, "failed to create bucket").WithDetail(c.config.Bucket)
	}
	c.logger.Info("created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// Bucket returns the documents bucket name.
func (c *MinIOClient) Bucket() string { return c.config.Bucket }

var ErrMinIOClientClosed = errors.New(errors.ErrCodeStorageUnavailable, "minio client is closed")

func (c *MinIOClient) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrMinIOClientClosed
	}
	return nil
}

// Close marks the client closed.  The SDK holds no connections to release.
func (c *MinIOClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HealthCheck verifies the documents bucket is reachable.
func (c *MinIOClient) HealthCheck(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageUnavailable, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageUnavailable, "documents bucket missing").WithDetail(c.config.Bucket)
	}
	return nil
}

//Personal.AI order the ending
