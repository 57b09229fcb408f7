package openai

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// parseAPIError extracts a human-readable error from the API response.
// When wrap is non-nil it is attached so the HTTP layer can map the failure.
func parseAPIError(err error, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return wrapf(wrap, "provider API error %d: %s", reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return wrapf(wrap, "provider API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	if wrap == nil {
		return err
	}
	return fmt.Errorf("provider request failed: %v: %w", err, wrap)
}

func wrapf(wrap error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if wrap == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %w", msg, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
