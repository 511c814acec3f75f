package imageflow

import (
	"time"

	"github.com/google/uuid"
)

// Mode categorizes a generation request for quota bucketing.
type Mode string

const (
	ModeBasic  Mode = "basic"
	ModeChat   Mode = "chat"
	ModeBatch  Mode = "batch"
	ModeSearch Mode = "search"
	ModeBlend  Mode = "blend"
)

// ImageSize represents the output resolution tier for generated images.
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatioAuto AspectRatio = ""
)

// SafetyCategory represents a content safety category.
type SafetyCategory string

const (
	SafetyCategoryHarassment       SafetyCategory = "HARM_CATEGORY_HARASSMENT"
	SafetyCategoryHateSpeech       SafetyCategory = "HARM_CATEGORY_HATE_SPEECH"
	SafetyCategorySexuallyExplicit SafetyCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	SafetyCategoryDangerousContent SafetyCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// SafetyThreshold represents the blocking threshold for safety filters.
type SafetyThreshold string

const (
	SafetyThresholdBlockNone      SafetyThreshold = "BLOCK_NONE"
	SafetyThresholdBlockLowAndUp  SafetyThreshold = "BLOCK_LOW_AND_ABOVE"
	SafetyThresholdBlockMedAndUp  SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	SafetyThresholdBlockHighAndUp SafetyThreshold = "BLOCK_ONLY_HIGH"
)

// SafetySetting configures content filtering for a specific category.
type SafetySetting struct {
	Category  SafetyCategory
	Threshold SafetyThreshold
}

// InputImage represents a reference image supplied with a request.
type InputImage struct {
	// Data is the raw image bytes
	Data []byte

	// MIMEType of the image (e.g., "image/jpeg", "image/png")
	MIMEType string

	// URI is an optional URI reference (for cloud-stored images)
	URI string
}

// Request describes a single generation request. A Request is treated as
// immutable once submitted: Execute works on a private copy, so mutating the
// original after submission has no effect on the in-flight operation.
type Request struct {
	// Prompt is the text description of the desired image.
	Prompt string

	// Images holds ordered reference images (editing, blending, style transfer).
	Images []InputImage

	// Size of the output image (1K, 2K, 4K). Empty defaults to 1K.
	Size ImageSize

	// AspectRatio of the output image. Empty lets the model decide.
	AspectRatio AspectRatio

	// Mode tags the request for quota bucketing. Empty defaults to basic.
	Mode Mode

	// Count is the number of images to generate. Zero defaults to 1.
	Count int

	// EnableGrounding enables Google Search grounding for factual prompts.
	EnableGrounding bool

	// EnableThinking enables the model's thinking mode for complex prompts.
	EnableThinking bool

	// Temperature controls randomness (0.0-2.0).
	Temperature *float32

	// SafetySettings for content filtering.
	SafetySettings []SafetySetting

	// ClientKey identifies the caller for cooldown purposes. Anonymous
	// callers sharing one backend credential share the default key.
	ClientKey string

	// OperationID keys progress tracking for this request. Zero value means
	// the orchestrator assigns one.
	OperationID uuid.UUID

	// History carries the committed prior turns of a conversation. Set by
	// Session; leave empty for single-shot requests.
	History []Turn
}

// Turn is one committed user-contribution/model-response pair within a
// conversation. Turns are append-only and owned by their Session.
type Turn struct {
	// Role is "user" or "model".
	Role string

	Text   string
	Images []GeneratedImage

	// At is when the turn was committed.
	At time.Time
}

// clone returns a copy of the request with its slices duplicated, so the
// in-flight operation is isolated from caller mutation.
func (r *Request) clone() *Request {
	cp := *r
	cp.Images = append([]InputImage(nil), r.Images...)
	cp.SafetySettings = append([]SafetySetting(nil), r.SafetySettings...)
	cp.History = append([]Turn(nil), r.History...)
	return &cp
}

// normalize fills defaulted fields on a cloned request.
func (r *Request) normalize() {
	if r.Mode == "" {
		r.Mode = ModeBasic
	}
	if r.Size == "" {
		r.Size = ImageSize1K
	}
	if r.Count <= 0 {
		r.Count = 1
	}
	if r.ClientKey == "" {
		r.ClientKey = DefaultClientKey
	}
	if r.OperationID == uuid.Nil {
		r.OperationID = uuid.New()
	}
}

// DefaultClientKey is the cooldown identity used when a request does not
// carry its own. All anonymous callers of a shared credential map here.
const DefaultClientKey = "shared"

// String returns the mode tag.
func (m Mode) String() string { return string(m) }

// String returns the string representation for API calls.
func (s ImageSize) String() string { return string(s) }

// String returns the string representation for API calls.
func (a AspectRatio) String() string { return string(a) }
