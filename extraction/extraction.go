/*
Package extraction reads salary rows out of screenshot images.

PURPOSE:
  Some caseworkers only have a screenshot of the salary register. An
  Extractor turns the image into salary.ExtractedRow values, which the
  salary package parses like any other grid.

CONTRACT:
  - Empty or unparseable model output is an empty slice, not an error.
  - A provider answering HTTP 429 returns *RateLimitError.
  - Only PNG, JPEG, GIF and WebP images are accepted.

SEE ALSO:
  - salary/parser.go: FromExtracted
  - api/handlers.go: POST /api/salary/extract
*/
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/warp/benefit-engine/salary"
)

// ErrUnsupportedContentType is returned for anything but the image types below.
var ErrUnsupportedContentType = errors.New("unsupported content type")

var supportedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is an uploaded screenshot.
type Image struct {
	Bytes       []byte
	ContentType string
}

// Extractor returns the salary rows visible in an image.
type Extractor interface {
	Extract(ctx context.Context, img Image) ([]salary.ExtractedRow, error)
}

// RateLimitError indicates the provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError defaults RetryAfter to 60s when the provider gives none.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// parseRetryAfter returns 0 for an empty or non-integer header.
func parseRetryAfter(val string) int {
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}
