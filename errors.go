package anyhwr

import "errors"

// Errors reported throughout the module.
// Returned errors wrap one of these values and can be
// matched with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrKeyNotFound     = errors.New("key not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrCorruptFile     = errors.New("corrupt file")
	ErrConsistency     = errors.New("consistency check failed")
)
