package jitterbuf

import "errors"

// Sentinel errors for jitter buffer operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrInvalidArgument indicates a caller-supplied value disagrees with the
	// buffer's configuration: a packet whose element count is not
	// PacketElements, a payload whose length is not Elements*ElementSize, or
	// a dequeue destination too small for the requested element count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidConfig indicates a Config field failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBufferClosed indicates the buffer has been closed.
	ErrBufferClosed = errors.New("jitter buffer closed")
)
