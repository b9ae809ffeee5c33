// Package repository defines error types that are reused across the
// document stores.  These sentinel values let the ingestion pipeline and the
// HTTP handlers tell a missing document apart from an infrastructure failure
// without depending on a particular backend.
package repository

import "errors"

// ErrNotFound is returned when an update targets a document id that does
// not exist in the collection.  Handlers should translate this into an HTTP
// 404 response.
var ErrNotFound = errors.New("document not found")

// ErrUnknownCollection is returned when a collection name is empty or
// contains characters a backend cannot store safely.
var ErrUnknownCollection = errors.New("unknown collection")

// ErrInvalidFilter is returned when a filter names a field that cannot be
// expressed as an equality lookup.
var ErrInvalidFilter = errors.New("invalid filter")
