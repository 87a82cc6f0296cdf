package vectorstore

import "errors"

var (
	ErrUnreachable        = errors.New("vector store unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrInvalidLimit       = errors.New("query limit must be positive")
)
