package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// S3ObjectStore implements objectstore.Store using Amazon S3 or any
// S3-compatible service.
//
// Keys are used verbatim as S3 object keys (after the optional KeyPrefix), so
// the bucket mirrors the repository hierarchy:
//
//	KeyPrefix: "dittorepo/"
//	Key:       "users/42/repositories/docs/readme.md"
//	S3 Key:    "dittorepo/users/42/repositories/docs/readme.md"
//
// Listings use ListObjectsV2 with "/" as delimiter. URL returns a presigned
// GET URL that expires after URLExpiry.
//
// Thread Safety:
// The underlying S3 client is safe for concurrent use. mu only guards the
// closed flag.
type S3ObjectStore struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	urlExpiry time.Duration

	mu     sync.RWMutex
	closed bool
}

// S3ObjectStoreConfig contains configuration for the S3 object store.
type S3ObjectStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string

	// URLExpiry is the lifetime of presigned URLs (default: 1h)
	URLExpiry time.Duration
}

// NewS3ObjectStore creates a store and verifies bucket access.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3ObjectStore: Initialized store
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3ObjectStore(ctx context.Context, cfg S3ObjectStoreConfig) (*S3ObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	expiry := cfg.URLExpiry
	if expiry == 0 {
		expiry = time.Hour
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix != "" {
		keyPrefix = objectstore.AsPrefix(strings.TrimPrefix(keyPrefix, objectstore.Delimiter))
	}

	return &S3ObjectStore{
		client:    cfg.Client,
		presign:   s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: keyPrefix,
		urlExpiry: expiry,
	}, nil
}

// objectKey returns the full S3 key for key.
func (s *S3ObjectStore) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *S3ObjectStore) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return objectstore.ErrStoreClosed
	}
	return nil
}

// isNotFound reports whether err is S3's answer for a missing object.
// GetObject answers with NoSuchKey, HeadObject with a bare NotFound.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Put uploads data with a single PutObject call.
func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := objectstore.ValidateKey(key); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// Get downloads the whole object.
func (s *S3ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the object. S3 treats deleting a missing key as success.
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// List returns the immediate children of prefix using a delimiter listing,
// following continuation tokens until the listing is complete.
func (s *S3ObjectStore) List(ctx context.Context, prefix string) (*objectstore.Listing, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	prefix = objectstore.AsPrefix(prefix)
	fullPrefix := s.objectKey(prefix)

	listing := &objectstore.Listing{Prefixes: []string{}, Items: []string{}}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(fullPrefix),
		Delimiter: aws.String(objectstore.Delimiter),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			listing.Prefixes = append(listing.Prefixes, strings.TrimPrefix(*cp.Prefix, s.keyPrefix))
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := strings.TrimPrefix(*obj.Key, s.keyPrefix)
			// Folder markers created by other S3 tools are not objects.
			if key == prefix || strings.HasSuffix(key, objectstore.Delimiter) {
				continue
			}
			listing.Items = append(listing.Items, key)
		}
	}

	return listing, nil
}

// URL returns a presigned GET URL for key. The object must exist.
func (s *S3ObjectStore) URL(ctx context.Context, key string) (string, error) {
	if err := s.checkOpen(ctx); err != nil {
		return "", err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
		}
		return "", fmt.Errorf("failed to resolve object %s: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return req.URL, nil
}

// Close marks the store closed. The client holds no resources to release.
func (s *S3ObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
