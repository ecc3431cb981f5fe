package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	storage_go "github.com/supabase-community/storage-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	uploads   map[string][]byte
	opts      map[string]storage_go.FileOptions
	uploadErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		uploads: map[string][]byte{},
		opts:    map[string]storage_go.FileOptions{},
	}
}

func (f *fakeBucket) UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	if f.uploadErr != nil {
		return storage_go.FileUploadResponse{}, f.uploadErr
	}
	b, _ := io.ReadAll(data)
	f.uploads[bucketId+"/"+relativePath] = b
	if len(fileOptions) > 0 {
		f.opts[relativePath] = fileOptions[0]
	}
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeBucket) GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://example.supabase.co/storage/v1/object/public/" + bucketId + "/" + filePath}
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New("", "", "player-images", zerolog.Nop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSupabase_Upload(t *testing.T) {
	fake := newFakeBucket()
	s := newSupabase(fake, "player-images", zerolog.Nop())

	err := s.Upload(context.Background(), "players/1.png", []byte("png"), UploadOptions{ContentType: "image/png", Upsert: true})
	require.NoError(t, err)

	assert.Equal(t, []byte("png"), fake.uploads["player-images/players/1.png"])
	opts := fake.opts["players/1.png"]
	require.NotNil(t, opts.ContentType)
	assert.Equal(t, "image/png", *opts.ContentType)
	require.NotNil(t, opts.Upsert)
	assert.True(t, *opts.Upsert)
}

func TestSupabase_UploadError(t *testing.T) {
	fake := newFakeBucket()
	fake.uploadErr = errors.New("bucket not found")
	s := newSupabase(fake, "player-images", zerolog.Nop())

	err := s.Upload(context.Background(), "players/1.png", []byte("png"), UploadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "players/1.png")
}

func TestSupabase_UploadCancelled(t *testing.T) {
	fake := newFakeBucket()
	s := newSupabase(fake, "player-images", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Upload(ctx, "players/1.png", []byte("png"), UploadOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.uploads)
}

func TestSupabase_PublicURL(t *testing.T) {
	fake := newFakeBucket()
	s := newSupabase(fake, "player-images", zerolog.Nop())

	assert.Equal(t, "https://example.supabase.co/storage/v1/object/public/player-images/players/7.png", s.PublicURL("players/7.png"))
}
