package models

import "errors"

var (
	// ErrDocumentNotFound is returned by stores when a document id is unknown.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrChunkNotFound is returned by stores when a chunk id is unknown.
	ErrChunkNotFound = errors.New("chunk not found")
)
