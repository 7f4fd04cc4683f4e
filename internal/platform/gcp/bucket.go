package gcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/streamhub/flink-manager/internal/platform/logger"
)

// BucketService is the artifact binary store. Keys follow
// artifacts/{name}/versions/{version}/fatjar/{name}-{version}.jar.
type BucketService interface {
	Upload(ctx context.Context, key string, file io.Reader) (hash string, written int64, err error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	SignedUploadURL(key string, ttl time.Duration) (string, error)
	SignedDownloadURL(key string, ttl time.Duration) (string, error)
	ObjectURL(key string) string
	Ping(ctx context.Context) error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")
	bucket := os.Getenv("GCS_BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if saPath == "" {
		serviceLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, relying on ambient ADC")
	}
	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucket,
	}, nil
}

// Upload streams the jar into the bucket while computing its SHA-256.
func (bs *bucketService) Upload(ctx context.Context, key string, file io.Reader) (string, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/java-archive"
	hasher := sha256.New()
	written, err := io.Copy(w, io.TeeReader(file, hasher))
	if err != nil {
		_ = w.Close()
		return "", 0, fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close writer for %q: %w", key, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

func (bs *bucketService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := bs.storageClient.Bucket(bs.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %q: %w", key, err)
	}
	return r, nil
}

func (bs *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(bs.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) Exists(ctx context.Context, key string) (bool, error) {
	_, err := bs.storageClient.Bucket(bs.bucketName).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (bs *bucketService) SignedUploadURL(key string, ttl time.Duration) (string, error) {
	return bs.storageClient.Bucket(bs.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Method:  "PUT",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
}

func (bs *bucketService) SignedDownloadURL(key string, ttl time.Duration) (string, error) {
	return bs.storageClient.Bucket(bs.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
}

func (bs *bucketService) ObjectURL(key string) string {
	return fmt.Sprintf("gs://%s/%s", bs.bucketName, key)
}

func (bs *bucketService) Ping(ctx context.Context) error {
	_, err := bs.storageClient.Bucket(bs.bucketName).Attrs(ctx)
	return err
}
