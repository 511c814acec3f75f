package gemini

import (
	"errors"
	"time"

	"google.golang.org/genai"

	"github.com/mhpenta/imageflow"
)

// mapAPIError converts genai SDK errors to typed backend errors so the
// orchestrator can classify them. Errors that are not API errors (network
// faults, context errors) pass through unchanged; the orchestrator treats
// those as transient.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	kind := kindForAPIError(apiErr)

	be := &imageflow.BackendError{
		Kind:       kind,
		StatusCode: apiErr.Code,
		Message:    apiErr.Message,
		Err:        err,
	}
	if kind == imageflow.KindRateLimited {
		// The API doesn't reliably provide Retry-After.
		be.RetryAfter = 60 * time.Second
	}
	return be
}

func kindForAPIError(apiErr genai.APIError) imageflow.ErrorKind {
	switch {
	case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
		return imageflow.KindRateLimited
	case apiErr.Code == 401 || apiErr.Code == 403 || apiErr.Status == "UNAUTHENTICATED":
		return imageflow.KindUnauthorized
	case apiErr.Code == 400 || apiErr.Status == "INVALID_ARGUMENT":
		return imageflow.KindInvalidRequest
	case apiErr.Code >= 500:
		return imageflow.KindTransient
	default:
		return imageflow.KindTransient
	}
}
