package tryon

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingImages  = errors.New("Please upload both a model image and a garment image")
	ErrUploadFailed   = errors.New("Failed to upload image to FAL storage")
	ErrNoResponse     = errors.New("No response received from API")
	ErrAPIReturned    = errors.New("API returned an error")
	ErrNoImages       = errors.New("API completed but returned no images")
	ErrUnsupportedImg = errors.New("unsupported image type, expected JPEG or PNG")
)

// User facing messages for the failure classes the hosted service reports.
const (
	MsgContentFlagged = "Content flagged as inappropriate. Please try different images."
	MsgBadDimensions  = "Image size or dimensions not supported. Please try different images."
	MsgRateLimited    = "Too many requests. Please wait and try again later."
	MsgGeneric        = "Failed to process images. Please try again."
)

// ValidationError reports an option or input that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// HTTPStatuser is implemented by errors that carry the status code of a failed call.
type HTTPStatuser interface {
	HTTPStatus() int
}

var userFacingSentinels = []error{ErrMissingImages, ErrNoResponse, ErrAPIReturned, ErrNoImages, ErrUnsupportedImg}

// UserMessage maps any error from a try-on run to the single line shown to the user.
// Matching is case sensitive: "NSFW" in upper case, "size" and "dimension" in lower case.
// Errors that match none of the known failure classes show their own message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	// upload failures hide their transport cause
	if errors.Is(err, ErrUploadFailed) {
		return ErrUploadFailed.Error()
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "NSFW"):
		return MsgContentFlagged
	case strings.Contains(text, "size") || strings.Contains(text, "dimension"):
		return MsgBadDimensions
	}

	var hs HTTPStatuser
	if errors.As(err, &hs) && hs.HTTPStatus() == http.StatusTooManyRequests {
		return MsgRateLimited
	}

	// wrapped sentinels and validation errors show only their own message
	for _, s := range userFacingSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if text != "" {
		return text
	}
	return MsgGeneric
}
