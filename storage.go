package imageflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrStorageNotConfigured is returned when storage operations are attempted
// without a configured storage backend.
var ErrStorageNotConfigured = errors.New("storage not configured")

// Storage is an interface for persisting generated images durably. The core
// only writes; it never reads storage back for its own correctness.
// Implementations can wrap existing storage clients (GCS, S3, R2, local
// disk) with this interface.
type Storage interface {
	// SaveFile saves image data to storage and returns the public URL.
	// The path should include the full object path (e.g., "images/2024/01/output.png").
	// The contentType is typically the image's MIME type (e.g., "image/png").
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// SaveMetadata accompanies persisted images so stored objects can be traced
// back to the request that produced them.
type SaveMetadata struct {
	Prompt    string
	Mode      Mode
	CreatedAt time.Time
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// URL is the public URL where the image can be accessed
	URL string

	// Path is the storage path/key where the image was saved
	Path string

	// Size is the number of bytes saved
	Size int
}

// SaveToStorage saves all images from a Result to storage. Objects land at
// {basePath}/{mode}/{timestamp}[_{index}].{extension}. It returns
// StorageResults for each successfully saved image.
func SaveToStorage(
	ctx context.Context,
	storage Storage,
	result *Result,
	basePath string,
	meta SaveMetadata) ([]StorageResult, error) {

	if storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if result == nil || len(result.Images) == 0 {
		return nil, nil
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	mode := meta.Mode
	if mode == "" {
		mode = ModeBasic
	}

	stamp := meta.CreatedAt.UTC().Format("20060102T150405")
	prefix := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(basePath, "/"), mode, stamp)

	results := make([]StorageResult, 0, len(result.Images))
	for i, img := range result.Images {
		ext := extensionFromMIME(img.MIMEType)
		path := prefix
		if len(result.Images) > 1 {
			path = fmt.Sprintf("%s_%d", prefix, i)
		}
		path = path + "." + ext

		url, err := storage.SaveFile(ctx, img.Data, path, img.MIMEType)
		if err != nil {
			return results, err
		}

		results = append(results, StorageResult{
			URL:  url,
			Path: path,
			Size: len(img.Data),
		})
	}

	return results, nil
}

// GetMIMEType returns the image MIME type for a file path.
func GetMIMEType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// extensionFromMIME returns a file extension for common image MIME types.
func extensionFromMIME(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
