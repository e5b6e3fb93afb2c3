package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docchat/backend/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive keeps the original bytes of each user's current upload.
type Archive interface {
	Put(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, userID int64) error
}

// ObjectKey is the object name holding a user's original upload.
func ObjectKey(userID int64) string {
	return "uploads/" + strconv.FormatInt(userID, 10) + "/original"
}

// MinIOArchive is a thin wrapper around the minio client.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive creates a MinIO client and ensures the bucket exists.
func NewMinIOArchive(ctx context.Context, cfg config.MinIOConfig) (*MinIOArchive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	a := &MinIOArchive{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, a.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return a, nil
}

// Put overwrites the user's archived original.
func (a *MinIOArchive) Put(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, ObjectKey(userID), r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Remove deletes the user's archived original. Missing objects are not an error.
func (a *MinIOArchive) Remove(ctx context.Context, userID int64) error {
	return a.client.RemoveObject(ctx, a.bucket, ObjectKey(userID), minio.RemoveObjectOptions{})
}

// Noop is used when object storage is not configured.
type Noop struct{}

func (Noop) Put(context.Context, int64, io.Reader, int64, string) error { return nil }

func (Noop) Remove(context.Context, int64) error { return nil }
