package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures the S3-compatible endpoint avatars are written to.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object names in returned links; derived from Endpoint when empty.
	PublicURL string
}

// AvatarStore implements app.AvatarStorage on MinIO or any S3-compatible service.
type AvatarStore struct {
	client *minio.Client
	bucket string
	public string
}

func NewAvatarStore(opts Options) (*AvatarStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &AvatarStore{client: client, bucket: opts.Bucket, public: publicBase(opts)}, nil
}

// EnsureBucket creates the avatar bucket when it does not exist yet.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *AvatarStore) UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (string, error) {
	name := ObjectName(userID, contentType)
	_, err := s.client.PutObject(ctx, s.bucket, name, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	return s.public + "/" + name, nil
}

// ObjectName is the key an avatar of userID is stored under. A new upload replaces the old one
// unless the image type changes.
func ObjectName(userID, contentType string) string {
	ext := ".img"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return "avatars/" + userID + ext
}

func publicBase(opts Options) string {
	if opts.PublicURL != "" {
		return strings.TrimRight(opts.PublicURL, "/")
	}
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + opts.Endpoint + "/" + opts.Bucket
}
