package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned by Generate when the input text is empty.
	ErrEmptyInput = errors.New("empty input")
	// ErrInputTooLong is returned by Generate when the text exceeds the
	// configured rune limit.
	ErrInputTooLong = errors.New("input too long")
	// ErrNoImage is returned by Download before any image has been generated.
	ErrNoImage = errors.New("no qr code generated")
)

// EncodeError represents a failure reported by the encoder backend
type EncodeError struct {
	Backend string
	Err     error
}

// Error returns the error message
func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode with %s: %v", e.Backend, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
