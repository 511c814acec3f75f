package imageflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorage records saved files in memory.
type MockStorage struct {
	SaveFileFunc func(ctx context.Context, data []byte, path string, contentType string) (string, error)

	saved []string
}

func (m *MockStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	m.saved = append(m.saved, path)
	if m.SaveFileFunc != nil {
		return m.SaveFileFunc(ctx, data, path, contentType)
	}
	return "https://cdn.example.com/" + path, nil
}

func TestSaveToStorage(t *testing.T) {
	storage := &MockStorage{}
	result := &Result{
		Images: []GeneratedImage{
			{Data: []byte("img-a"), MIMEType: "image/png"},
			{Data: []byte("img-b"), MIMEType: "image/jpeg"},
		},
	}
	created := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)

	saved, err := SaveToStorage(context.Background(), storage, result, "images/", SaveMetadata{
		Prompt:    "two foxes",
		Mode:      ModeBlend,
		CreatedAt: created,
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "images/blend/20260823T103000_0.png", saved[0].Path)
	assert.Equal(t, "images/blend/20260823T103000_1.jpg", saved[1].Path)
	assert.Equal(t, "https://cdn.example.com/"+saved[0].Path, saved[0].URL)
	assert.Equal(t, len("img-a"), saved[0].Size)
}

func TestSaveToStorage_SingleImageOmitsIndex(t *testing.T) {
	storage := &MockStorage{}
	result := &Result{
		Images: []GeneratedImage{{Data: []byte("img"), MIMEType: "image/png"}},
	}
	created := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)

	saved, err := SaveToStorage(context.Background(), storage, result, "images", SaveMetadata{
		Mode:      ModeBasic,
		CreatedAt: created,
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "images/basic/20260823T103000.png", saved[0].Path)
}

func TestSaveToStorage_NilStorage(t *testing.T) {
	result := &Result{Images: []GeneratedImage{{Data: []byte("img"), MIMEType: "image/png"}}}

	_, err := SaveToStorage(context.Background(), nil, result, "images", SaveMetadata{})
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}

func TestSaveToStorage_NoImagesIsNoop(t *testing.T) {
	storage := &MockStorage{}

	saved, err := SaveToStorage(context.Background(), storage, &Result{}, "images", SaveMetadata{})
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, storage.saved)
}

func TestSaveToStorage_PartialFailure(t *testing.T) {
	wantErr := errors.New("bucket unavailable")
	storage := &MockStorage{
		SaveFileFunc: func(ctx context.Context, data []byte, path string, contentType string) (string, error) {
			if len(data) > 0 && data[0] == 'b' {
				return "", wantErr
			}
			return "https://cdn.example.com/" + path, nil
		},
	}
	result := &Result{
		Images: []GeneratedImage{
			{Data: []byte("a"), MIMEType: "image/png"},
			{Data: []byte("b"), MIMEType: "image/png"},
		},
	}

	saved, err := SaveToStorage(context.Background(), storage, result, "images", SaveMetadata{})
	require.ErrorIs(t, err, wantErr)
	assert.Len(t, saved, 1, "successes before the failure are returned")
}

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"photo.png", "image/png"},
		{"photo.JPG", "image/jpeg"},
		{"photo.jpeg", "image/jpeg"},
		{"photo.webp", "image/webp"},
		{"photo.bmp", "image/png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetMIMEType(tt.path), tt.path)
	}
}
