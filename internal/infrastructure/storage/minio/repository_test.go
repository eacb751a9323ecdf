package minio

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func newTestRepo(api *MockMinIOAPI) ArtifactRepository {
	c := newClientWithAPI(api, &MinIOConfig{Bucket: "models"}, logging.NewNopLogger())
	return NewArtifactRepository(c, nil)
}

func objectChan(infos ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(infos))
	for _, i := range infos {
		ch <- i
	}
	close(ch)
	return ch
}

func TestRepository_List(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("ListObjects", mock.Anything, "models", minio.ListObjectsOptions{Prefix: "ann/v1/", Recursive: true}).
		Return(objectChan(
			minio.ObjectInfo{Key: "ann/v1/model.yaml"},
			minio.ObjectInfo{Key: "ann/v1/weights/"},
			minio.ObjectInfo{Key: "ann/v1/weights/dense_0_kernel.npy"},
		))

	keys, err := newTestRepo(api).List(context.Background(), "ann/v1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann/v1/model.yaml", "ann/v1/weights/dense_0_kernel.npy"}, keys)
}

func TestRepository_ListError(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("ListObjects", mock.Anything, "models", mock.Anything).
		Return(objectChan(minio.ObjectInfo{Err: errors.New("access denied")}))

	_, err := newTestRepo(api).List(context.Background(), "x/")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageError))
}

func TestRepository_Download(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "model.yaml")
	api := new(MockMinIOAPI)
	api.On("FGetObject", mock.Anything, "models", "ann/model.yaml", dst, mock.Anything).
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(args.String(3), []byte("name: ann"), 0o644))
		}).
		Return(nil)

	require.NoError(t, newTestRepo(api).Download(context.Background(), "ann/model.yaml", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "name: ann", string(data))
}

func TestRepository_DownloadNotFound(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("FGetObject", mock.Anything, "models", "missing.npy", mock.Anything, mock.Anything).
		Return(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound})

	err := newTestRepo(api).Download(context.Background(), "missing.npy", filepath.Join(t.TempDir(), "m.npy"))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepository_DownloadInvalid(t *testing.T) {
	err := newTestRepo(new(MockMinIOAPI)).Download(context.Background(), "", "x")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestRepository_Upload(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("FPutObject", mock.Anything, "models", "ann/model.yaml", "/tmp/model.yaml",
		minio.PutObjectOptions{ContentType: "application/yaml"}).
		Return(minio.UploadInfo{Bucket: "models", Key: "ann/model.yaml", ETag: "abc", Size: 12}, nil)

	res, err := newTestRepo(api).Upload(context.Background(), "/tmp/model.yaml", "ann/model.yaml")
	require.NoError(t, err)
	assert.Equal(t, "abc", res.ETag)
	assert.Equal(t, int64(12), res.Size)
}

func TestRepository_Stat(t *testing.T) {
	now := time.Now()
	api := new(MockMinIOAPI)
	api.On("StatObject", mock.Anything, "models", "ann/model.yaml", mock.Anything).
		Return(minio.ObjectInfo{Key: "ann/model.yaml", Size: 40, LastModified: now}, nil)

	meta, err := newTestRepo(api).Stat(context.Background(), "ann/model.yaml")
	require.NoError(t, err)
	assert.Equal(t, int64(40), meta.Size)
	assert.Equal(t, "models", meta.Bucket)
}

func TestRepository_Closed(t *testing.T) {
	c := newClientWithAPI(new(MockMinIOAPI), &MinIOConfig{}, nil)
	require.NoError(t, c.Close())
	_, err := NewArtifactRepository(c, nil).List(context.Background(), "")
	assert.ErrorIs(t, err, ErrMinIOClientClosed)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/yaml", contentTypeFor("a/model.yaml"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("a/w.npy"))
}

//Personal.AI order the ending
