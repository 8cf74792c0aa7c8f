package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"

	"board-relay/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store implements BlobStore on S3-compatible object storage.
type S3Store struct {
	Client     *minio.Client
	BucketName string
}

func NewS3Store(cfg models.S3Config) (*S3Store, error) {
	// Strip scheme if present
	endpoint := strings.TrimPrefix(cfg.Endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	var creds *credentials.Credentials
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		// Use IAM role credentials if keys are not provided
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := minioClient.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &S3Store{Client: minioClient, BucketName: cfg.Bucket}, nil
}

func (s3 *S3Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s3.Client.PutObject(ctx, s3.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(path.Ext(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s3 *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s3.Client.GetObject(ctx, s3.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s3.mapError(key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s3.mapError(key, err)
	}
	return data, nil
}

func (s3 *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s3.Client.StatObject(ctx, s3.BucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

func (s3 *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s3.Client.ListObjects(ctx, s3.BucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s3 *S3Store) Delete(ctx context.Context, key string) error {
	err := s3.Client.RemoveObject(ctx, s3.BucketName, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s3 *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	if strings.TrimSuffix(prefix, "/") == "" {
		return fmt.Errorf("refusing to delete the whole bucket")
	}
	keys, err := s3.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s3.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s3 *S3Store) mapError(key string, err error) error {
	if isNoSuchKey(err) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", key, err)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
