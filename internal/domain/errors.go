package domain

import "errors"

var (
	// ErrListNotFound is returned when a shopping list does not exist
	ErrListNotFound = errors.New("shopping list not found")

	// ErrItemNotFound is returned when a list item cannot be resolved
	ErrItemNotFound = errors.New("list item not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrFallbackUnavailable is returned when the fallback extraction service
	// is not configured or cannot be reached
	ErrFallbackUnavailable = errors.New("fallback extraction service unavailable")

	// ErrExtractionFailed is returned when the fallback service responds with
	// something that cannot be parsed into structured fields
	ErrExtractionFailed = errors.New("fallback extraction failed")

	// ErrStoreClosed is returned when the list store is used after Close
	ErrStoreClosed = errors.New("list store is closed")
)
