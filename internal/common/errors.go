// Package common holds error codes and small types shared by every layer
// of the engine (buf, pf, sp, am, recfile).
package common

import "errors"

// Resource exhaustion. Reported, never retried automatically.
var (
	ErrNoBuf   = errors.New("no free buffer frame available")
	ErrNoMem   = errors.New("out of memory")
	ErrNoSpace = errors.New("insufficient free space on page")
)

// Contract violations. These indicate a caller bug and surface immediately.
var (
	ErrPageFixed    = errors.New("page is already fixed")
	ErrPageUnfixed  = errors.New("page is not fixed")
	ErrPageInBuf    = errors.New("page already resident in buffer pool")
	ErrPageNotInBuf = errors.New("page not resident in buffer pool")
	ErrInvalidSlot  = errors.New("invalid slot number")
	ErrInvalidPage  = errors.New("invalid page number")
)

// I/O errors. Surfaced to the caller; state is restored where feasible.
var (
	ErrIncompleteRead  = errors.New("incomplete page read")
	ErrIncompleteWrite = errors.New("incomplete page write")
	ErrHdrRead         = errors.New("failed to read file header")
	ErrHdrWrite        = errors.New("failed to write file header")
)

// File and index-layer errors.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrIndexNotFound = errors.New("index not found")
	ErrDuplicateFile = errors.New("file already exists")
	ErrFileNotOpen   = errors.New("file is not open")
)
