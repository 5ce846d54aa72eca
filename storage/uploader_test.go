package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageExtension(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		wantErr     bool
	}{
		{"image/jpeg", ".jpg", false},
		{"IMAGE/PNG", ".png", false},
		{"image/webp; charset=binary", ".webp", false},
		{"image/svg+xml", "", true},
		{"application/pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, err := ImageExtension(tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedContentType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectKeyIsUnique(t *testing.T) {
	a := ObjectKey("/avatars/", 7, ".png")
	b := ObjectKey("avatars", 7, ".png")

	assert.True(t, strings.HasPrefix(a, "avatars/7/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "avatars/7/x.png", KeyFromURL("https://cdn.example/", "https://cdn.example/avatars/7/x.png"))
	assert.Equal(t, "", KeyFromURL("https://cdn.example", "https://other.example/avatars/7/x.png"))
	assert.Equal(t, "", KeyFromURL("", "https://cdn.example/a.png"))
}

func TestNewCloudflareR2UploaderRequiresConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "acc"})
	assert.Error(t, err)
}

func TestCloudflareR2PublicURL(t *testing.T) {
	u, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{
		AccountID:       "acc",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "bucket",
		PublicBaseURL:   "https://cdn.example/",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/clubs/1/logo.png", u.GetPublicURL("/clubs/1/logo.png"))
	assert.Equal(t, "", u.GetPublicURL(""))
	assert.Equal(t, "clubs/1/logo.png", u.KeyFromURL("https://cdn.example/clubs/1/logo.png"))
}
