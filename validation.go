package imageflow

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrEmptyImageData  = errors.New("image data cannot be empty")
	ErrInvalidMIMEType = errors.New("invalid or unsupported MIME type")
	ErrImageTooLarge   = errors.New("image data exceeds maximum size")
	ErrTooManyImages   = errors.New("too many input images")
	ErrUnknownMode     = errors.New("unknown generation mode")
	ErrUnknownSize     = errors.New("unknown image size")
)

// Image size limits
const (
	// MaxImageSize is the maximum allowed image size in bytes (20MB)
	MaxImageSize = 20 * 1024 * 1024

	// MaxInputImages is the maximum number of reference images per request
	MaxInputImages = 14
)

// ValidMIMETypes contains the supported image MIME types
var ValidMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var validModes = map[Mode]bool{
	ModeBasic:  true,
	ModeChat:   true,
	ModeBatch:  true,
	ModeSearch: true,
	ModeBlend:  true,
}

var validSizes = map[ImageSize]bool{
	ImageSize1K: true,
	ImageSize2K: true,
	ImageSize4K: true,
}

// ValidatePrompt validates a text prompt.
func ValidatePrompt(prompt string) error {
	if prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateInputImage validates a reference image.
func ValidateInputImage(img InputImage) error {
	if len(img.Data) == 0 && img.URI == "" {
		return ErrEmptyImageData
	}

	if len(img.Data) > 0 {
		if len(img.Data) > MaxImageSize {
			return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize)
		}

		if img.MIMEType == "" {
			return fmt.Errorf("%w: MIME type is required", ErrInvalidMIMEType)
		}

		if !ValidMIMETypes[img.MIMEType] {
			return fmt.Errorf("%w: %s", ErrInvalidMIMEType, img.MIMEType)
		}
	}

	return nil
}

// ValidateInputImages validates a slice of reference images.
func ValidateInputImages(images []InputImage) error {
	if len(images) > MaxInputImages {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyImages, len(images), MaxInputImages)
	}

	for i, img := range images {
		if err := ValidateInputImage(img); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}

	return nil
}

// ValidateRequest checks a normalized request before admission. A request
// that fails validation is rejected locally without consuming quota.
func ValidateRequest(req *Request) error {
	if err := ValidatePrompt(req.Prompt); err != nil {
		return err
	}
	if err := ValidateInputImages(req.Images); err != nil {
		return err
	}
	if !validModes[req.Mode] {
		return fmt.Errorf("%w: %s", ErrUnknownMode, req.Mode)
	}
	if !validSizes[req.Size] {
		return fmt.Errorf("%w: %s", ErrUnknownSize, req.Size)
	}
	return nil
}
