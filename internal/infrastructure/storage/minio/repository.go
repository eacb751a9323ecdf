package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeModelArtifactNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
)

// ArtifactRepository stores model artifact files under key prefixes.
type ArtifactRepository interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key, dst string) error
	Upload(ctx context.Context, src, key string) (*UploadResult, error)
	Stat(ctx context.Context, key string) (*ObjectMetadata, error)
}

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// ObjectMetadata describes an object without its content.
type ObjectMetadata struct {
	Bucket       string
	ObjectKey    string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

type minioRepository struct {
	client *MinIOClient
	logger logging.Logger
}

// NewArtifactRepository returns a repository over the client's bucket.
func NewArtifactRepository(client *MinIOClient, log logging.Logger) ArtifactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &minioRepository{client: client, logger: log}
}

// List returns every object key under prefix, recursively, in listing order.
func (r *minioRepository) List(ctx context.Context, prefix string) ([]string, error) {
	if err := r.client.checkOpen(); err != nil {
		return nil, err
	}
	var keys []string
	for obj := range r.client.client.ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, errors.ErrCodeStorageError, "list %s", prefix)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Download writes the object at key to the local file dst, creating parent
// directories.
func (r *minioRepository) Download(ctx context.Context, key, dst string) error {
	if key == "" || dst == "" {
		return ErrInvalidRequest.WithDetail("key and destination are required")
	}
	if err := r.client.checkOpen(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create download directory")
	}
	err := r.client.client.FGetObject(ctx, r.client.Bucket(), key, dst, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return ErrObjectNotFound.WithDetail(key).WithCause(err)
		}
		return errors.Wrapf(err, errors.ErrCodeStorageError, "download %s", key)
	}
	r.logger.Debug("artifact downloaded", logging.String("key", key), logging.String("dst", dst))
	return nil
}

// Upload stores the local file src at key.
func (r *minioRepository) Upload(ctx context.Context, src, key string) (*UploadResult, error) {
	if key == "" || src == "" {
		return nil, ErrInvalidRequest.WithDetail("source and key are required")
	}
	if err := r.client.checkOpen(); err != nil {
		return nil, err
	}
	info, err := r.client.client.FPutObject(ctx, r.client.Bucket(), key, src, minio.PutObjectOptions{
		ContentType: contentTypeFor(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "upload %s", key)
	}
	return &UploadResult{
		Bucket:     info.Bucket,
		ObjectKey:  info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}, nil
}

// Stat returns object metadata.
func (r *minioRepository) Stat(ctx context.Context, key string) (*ObjectMetadata, error) {
	if err := r.client.checkOpen(); err != nil {
		return nil, err
	}
	info, err := r.client.client.StatObject(ctx, r.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key).WithCause(err)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "stat %s", key)
	}
	return &ObjectMetadata{
		Bucket:       r.client.Bucket(),
		ObjectKey:    info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

//Personal.AI order the ending
