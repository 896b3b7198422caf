package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	uploadDomain "github.com/davicafu/hexacrud/internal/upload/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig agrupa los parámetros de conexión S3/MinIO.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStorage guarda los ficheros en un bucket S3 compatible.
// Es seguro para uso concurrente.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage valida la conexión y crea el bucket si falta.
func NewMinioStorage(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStorage{client: cli, bucket: cfg.Bucket}, nil
}

func (m *MinioStorage) Put(ctx context.Context, key string, r io.Reader, info uploadDomain.ObjectInfo) (uploadDomain.ObjectInfo, error) {
	clean, err := uploadDomain.CleanKey(key)
	if err != nil {
		return uploadDomain.ObjectInfo{}, err
	}
	size := info.Size
	if size <= 0 {
		size = -1
	}
	out, err := m.client.PutObject(ctx, m.bucket, clean, r, size, minio.PutObjectOptions{
		ContentType: info.ContentType,
	})
	if err != nil {
		return uploadDomain.ObjectInfo{}, err
	}
	info.Key = key
	info.Size = out.Size
	return info, nil
}

func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, uploadDomain.ObjectInfo, error) {
	clean, err := uploadDomain.CleanKey(key)
	if err != nil {
		return nil, uploadDomain.ObjectInfo{}, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, uploadDomain.ObjectInfo{}, notFound(err)
	}
	// GetObject es perezoso: el Stat es el que falla si no existe.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, uploadDomain.ObjectInfo{}, notFound(err)
	}
	return obj, uploadDomain.ObjectInfo{
		Key:         key,
		Size:        st.Size,
		ContentType: st.ContentType,
	}, nil
}

// Delete no falla si el objeto no existe (S3 es idempotente aquí).
func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	clean, err := uploadDomain.CleanKey(key)
	if err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, clean, minio.RemoveObjectOptions{})
}

func notFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return uploadDomain.ErrObjectNotFound
	}
	return err
}
