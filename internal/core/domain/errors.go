package domain

import "errors"

var (
	// ErrAlreadyReversed is returned by persistence when a second successful reversal
	// would reference the same original.
	ErrAlreadyReversed = errors.New("transaction already reversed")
	// ErrConcurrentUpdate means an account row changed since it was read.
	ErrConcurrentUpdate = errors.New("account was modified concurrently")
)
