package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStorageUnavailable is returned when the database cannot be reached
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrIngestFile is returned when an ingestion source file cannot be read
	ErrIngestFile = errors.New("ingest file unreadable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
