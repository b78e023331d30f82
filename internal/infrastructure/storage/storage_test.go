package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bakery/orderdesk/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3Archive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Archive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3Archive(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3Archive(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3Archive(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("defaults presign expiration", func(t *testing.T) {
		a, err := NewS3Archive(&config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "localhost:9000"})
		require.NoError(t, err)
		assert.Equal(t, "b", a.Bucket())
		assert.Equal(t, 15*time.Minute, a.presignExpiration)
	})

	t.Run("options override config", func(t *testing.T) {
		a, err := NewS3Archive(
			&config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", PresignExpiration: time.Minute},
			WithPresignExpiration(time.Hour),
			WithLogger(zaptest.NewLogger(t)),
		)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, a.presignExpiration)
	})
}

func newTestArchive(t *testing.T) *S3Archive {
	t.Helper()
	a, err := NewS3Archive(&config.StorageConfig{
		Bucket:       "desk-exports",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		KeyPrefix:    "/exports/",
	})
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return a
}

func TestS3Archive_DownloadURL(t *testing.T) {
	a := newTestArchive(t)

	t.Run("empty key returns error", func(t *testing.T) {
		u, _, err := a.DownloadURL(context.Background(), "")
		require.ErrorIs(t, err, ErrKeyRequired)
		assert.Empty(t, u)
	})

	t.Run("presigns a path-style url", func(t *testing.T) {
		u, expiresAt, err := a.DownloadURL(context.Background(), "exports/u-1/orders.xlsx")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u, "http://localhost:9000/desk-exports/"))
		assert.Contains(t, u, "X-Amz-Signature")
		assert.Equal(t, a.now().Add(15*time.Minute), expiresAt)
	})
}

func TestS3Archive_KeyValidation(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.Put(ctx, "", []byte("x"), "text/plain"), ErrKeyRequired)
	assert.ErrorIs(t, a.Delete(ctx, ""), ErrKeyRequired)
	assert.Equal(t, "exports/u-1/20240301-093000-orders.pdf", a.Key("u-1", "orders.pdf"))
}

func TestExportKey(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("AST", 3*3600))
	assert.Equal(t, "exports/u-1/20240301-090000-orders.xlsx", ExportKey("exports", "u-1", "orders.xlsx", at))
	assert.Equal(t, "anonymous/20240301-090000-x.pdf", ExportKey("", "", "x.pdf", at))
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryArchive("http://desk.local/files")

	data := []byte("spreadsheet")
	require.NoError(t, m.Put(ctx, "exports/u-1/a.xlsx", data, "application/octet-stream"))
	data[0] = 'X'

	obj, ok := m.Get("exports/u-1/a.xlsx")
	require.True(t, ok)
	assert.Equal(t, "spreadsheet", string(obj.Data))
	assert.Equal(t, "application/octet-stream", obj.ContentType)

	u, expiresAt, err := m.DownloadURL(ctx, "exports/u-1/a.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "http://desk.local/files/exports/u-1/a.xlsx", u)
	assert.True(t, expiresAt.After(time.Now()))

	require.NoError(t, m.Delete(ctx, "exports/u-1/a.xlsx"))
	_, ok = m.Get("exports/u-1/a.xlsx")
	assert.False(t, ok)

	assert.ErrorIs(t, m.Put(ctx, "", nil, ""), ErrKeyRequired)
	_, _, err = m.DownloadURL(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
