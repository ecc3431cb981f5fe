// Package storage uploads player headshots to object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// ErrNotConfigured is returned by New when no storage credentials are set.
var ErrNotConfigured = errors.New("object storage not configured")

// UploadOptions control how an object is written.
type UploadOptions struct {
	ContentType string
	Upsert      bool
}

// ObjectStore is the object storage contract used by the sync pipeline.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error
	PublicURL(path string) string
}

// bucketAPI is the subset of the storage-go client this package calls.
type bucketAPI interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// Supabase stores objects in a single Supabase Storage bucket.
type Supabase struct {
	api    bucketAPI
	bucket string
	logger zerolog.Logger
}

// New builds a Supabase-backed store from the project URL and service key.
func New(projectURL, serviceKey, bucket string, logger zerolog.Logger) (*Supabase, error) {
	if projectURL == "" || serviceKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := supabase.NewClient(projectURL, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return newSupabase(client.Storage, bucket, logger), nil
}

func newSupabase(api bucketAPI, bucket string, logger zerolog.Logger) *Supabase {
	return &Supabase{
		api:    api,
		bucket: bucket,
		logger: logger.With().Str("component", "storage").Str("bucket", bucket).Logger(),
	}
}

// Upload writes data at path. The storage client is not context-aware, so
// ctx is only checked before the call.
func (s *Supabase) Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fileOpts := storage_go.FileOptions{Upsert: &opts.Upsert}
	if opts.ContentType != "" {
		contentType := opts.ContentType
		fileOpts.ContentType = &contentType
	}

	if _, err := s.api.UploadFile(s.bucket, path, bytes.NewReader(data), fileOpts); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Object uploaded")
	return nil
}

// PublicURL returns the public URL of path.
func (s *Supabase) PublicURL(path string) string {
	return s.api.GetPublicUrl(s.bucket, path).SignedURL
}
