package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	presignedURLTTL = 15 * time.Minute
	photoPrefix     = "photos"
)

var (
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload photo")
	ErrDeleteFailed         = errors.New("failed to delete photo")
	ErrForeignObject        = errors.New("photo does not belong to account")
)

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"heic": "image/heic",
	"heif": "image/heif",
}

// PhotoStore keeps account photos in an S3 compatible bucket.
type PhotoStore struct {
	client *minio.Client
	bucket string

	mu    sync.Mutex
	ready bool
	// ensure checks or creates the bucket; swapped in tests.
	ensure func(ctx context.Context) error
}

func NewPhotoStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*PhotoStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s := &PhotoStore{client: client, bucket: bucket}
	s.ensure = s.ensureBucket
	return s, nil
}

// lazyInit makes sure the bucket exists before first use so startup does
// not depend on storage. A failed attempt is retried on the next call.
func (s *PhotoStore) lazyInit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *PhotoStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket: %v", ErrBucketCreationFailed, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
	}
	return nil
}

// Put stores the photo and returns its object key. ext must already be
// validated.
func (s *PhotoStore) Put(ctx context.Context, accountID int64, ext string, r io.Reader, size int64) (string, error) {
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	key := ObjectKey(accountID, ext)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentTypes[ext],
		UserMetadata: map[string]string{
			"Account-ID":  fmt.Sprintf("%d", accountID),
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return key, nil
}

// Delete removes a photo previously stored for accountID. Empty keys are a
// no-op.
func (s *PhotoStore) Delete(ctx context.Context, accountID int64, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if !OwnedBy(accountID, key) {
		return ErrForeignObject
	}
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

// URL returns a short-lived presigned GET link for key.
func (s *PhotoStore) URL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", nil
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign photo url: %w", err)
	}
	return u.String(), nil
}

func ObjectKey(accountID int64, ext string) string {
	return fmt.Sprintf("%s/account-%d/%s.%s", photoPrefix, accountID, uuid.NewString(), ext)
}

// OwnedBy reports whether key lives under accountID's prefix.
func OwnedBy(accountID int64, key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, fmt.Sprintf("%s/account-%d/", photoPrefix, accountID))
}
