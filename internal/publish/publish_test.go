package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, key string
	data        []byte
	size        int64
	err         error
}

func (f *fakePutter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	var data, err = io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket, f.key, f.data, f.size = bucketName, objectName, data, objectSize
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func TestParseTarget(t *testing.T) {
	var target, err = ParseTarget("s3://nets/halfkp/nnue.bin")
	require.NoError(t, err)
	assert.Equal(t, Target{Bucket: "nets", Key: "halfkp/nnue.bin"}, target)
	assert.Equal(t, "s3://nets/halfkp/nnue.bin", target.String())

	for _, s := range []string{"nets/nnue.bin", "s3://nets", "s3:///nnue.bin", "s3://nets/dir/"} {
		_, err = ParseTarget(s)
		assert.Error(t, err, s)
	}
}

func TestUploadFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "nnue.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0644))

	var putter = &fakePutter{}
	var u = &Uploader{client: putter}
	var info, err = u.UploadFile(context.Background(), path, Target{Bucket: "nets", Key: "a.bin"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "nets", putter.bucket)
	assert.Equal(t, "a.bin", putter.key)
	assert.Equal(t, int64(4), putter.size)
	assert.Equal(t, []byte{1, 2, 3, 4}, putter.data)

	putter.err = errors.New("connection refused")
	_, err = u.UploadFile(context.Background(), path, Target{Bucket: "nets", Key: "a.bin"})
	assert.ErrorIs(t, err, putter.err)
}

func TestNewUploaderNeedsCredentials(t *testing.T) {
	t.Setenv(EnvAccessKey, "")
	t.Setenv(EnvSecretKey, "")
	var _, err = NewUploader(ConfigFromEnv("localhost:9000", false))
	assert.Error(t, err)

	t.Setenv(EnvAccessKey, "minioadmin")
	t.Setenv(EnvSecretKey, "minioadmin")
	u, err := NewUploader(ConfigFromEnv("localhost:9000", false))
	require.NoError(t, err)
	assert.NotNil(t, u)
}
