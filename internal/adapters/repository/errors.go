package repository

import "errors"

// Sentinel kinds for input store errors.
var (
	ErrReadStore  = errors.New("read input store failed")
	ErrWriteStore = errors.New("write input store failed")
	ErrClosed     = errors.New("input store closed")
)
