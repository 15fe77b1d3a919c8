// Package publish uploads exported networks to S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	EnvAccessKey = "HALFKP_S3_ACCESS_KEY"
	EnvSecretKey = "HALFKP_S3_SECRET_KEY"
)

// Target is an object location written as s3://bucket/key.
type Target struct {
	Bucket string
	Key    string
}

func ParseTarget(s string) (Target, error) {
	var rest, ok = strings.CutPrefix(s, "s3://")
	if !ok {
		return Target{}, fmt.Errorf("publish: target %q must start with s3://", s)
	}
	var bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return Target{}, fmt.Errorf("publish: target %q needs a bucket and an object key", s)
	}
	return Target{Bucket: bucket, Key: key}, nil
}

func (t Target) String() string {
	return "s3://" + t.Bucket + "/" + t.Key
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

// ConfigFromEnv fills credentials from HALFKP_S3_ACCESS_KEY and HALFKP_S3_SECRET_KEY.
func ConfigFromEnv(endpoint string, secure bool) Config {
	return Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv(EnvAccessKey),
		SecretKey: os.Getenv(EnvSecretKey),
		Secure:    secure,
	}
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Uploader struct {
	client objectPutter
}

func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("publish: credentials missing, set %v and %v", EnvAccessKey, EnvSecretKey)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}
	return &Uploader{client: client}, nil
}

func (u *Uploader) UploadFile(ctx context.Context, path string, target Target) (minio.UploadInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return minio.UploadInfo{}, err
	}
	info, err := u.client.PutObject(ctx, target.Bucket, target.Key, f, fi.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		var resp = minio.ToErrorResponse(err)
		if resp.Code != "" {
			return info, fmt.Errorf("upload %v: %v: %w", target, resp.Code, err)
		}
		return info, fmt.Errorf("upload %v: %w", target, err)
	}
	return info, nil
}
