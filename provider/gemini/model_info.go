package gemini

import "github.com/mhpenta/imageflow"

// API model name constants.
const (
	// APIModelProImage is the current Gemini pro image model.
	APIModelProImage = "gemini-3-pro-image-preview"

	// APIModelFlashImage is the faster, cheaper image model.
	APIModelFlashImage = "gemini-2.5-flash-image"
)

// ModelInfo describes a Gemini image model's capabilities.
type ModelInfo struct {
	// Name is the public model name.
	Name string

	// APIModelName is the name sent on API calls.
	APIModelName string

	SupportsGrounding bool
	SupportsThinking  bool

	// MaxInputImages is the cap on reference images per request.
	MaxInputImages int

	SupportedSizes []imageflow.ImageSize
}

var proImageInfo = ModelInfo{
	Name:              "pro-image",
	APIModelName:      APIModelProImage,
	SupportsGrounding: true,
	SupportsThinking:  true,
	MaxInputImages:    14,
	SupportedSizes: []imageflow.ImageSize{
		imageflow.ImageSize1K, imageflow.ImageSize2K, imageflow.ImageSize4K,
	},
}

var flashImageInfo = ModelInfo{
	Name:              "flash-image",
	APIModelName:      APIModelFlashImage,
	SupportsGrounding: false,
	SupportsThinking:  false,
	MaxInputImages:    3,
	SupportedSizes: []imageflow.ImageSize{
		imageflow.ImageSize1K, imageflow.ImageSize2K,
	},
}

// Models returns the model definitions supported by this provider. The
// first model is the default.
func Models() []ModelInfo {
	return []ModelInfo{proImageInfo, flashImageInfo}
}

// DefaultModelInfo returns the default model.
func DefaultModelInfo() ModelInfo {
	return proImageInfo
}

// ModelInfoFor returns metadata for an API model name.
func ModelInfoFor(apiModelName string) (ModelInfo, bool) {
	for _, info := range Models() {
		if info.APIModelName == apiModelName || info.Name == apiModelName {
			return info, true
		}
	}
	return ModelInfo{}, false
}
