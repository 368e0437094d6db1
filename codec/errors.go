package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat is returned for unrecognized format tags.
	ErrUnknownFormat = errors.New("codec: unknown format")
	// ErrBufferTooSmall is returned by EncodeTo when dst cannot hold the output.
	ErrBufferTooSmall = errors.New("codec: destination buffer too small")
	// ErrNotDecodable is returned when decoding an encode-only format.
	ErrNotDecodable = errors.New("codec: format cannot be decoded")
	// ErrNotViewable is returned by View for formats without a zero-copy layout.
	ErrNotViewable = errors.New("codec: format cannot be viewed in place")
	// ErrMisaligned is returned by View when the frozen layout is not 32-byte aligned.
	ErrMisaligned = errors.New("codec: data is not aligned")
	// ErrSizeMismatch means an encoder produced a different length than ExactSize.
	// It indicates the bitmap changed during encoding.
	ErrSizeMismatch = errors.New("codec: encoded size does not match exact size")
)

// DecodeError describes malformed or truncated input.
type DecodeError struct {
	Format Format
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: decode %s: %s: %v", e.Format, e.Msg, e.Err)
	}
	return fmt.Sprintf("codec: decode %s: %s", e.Format, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(f Format, msg string, err error) error {
	return &DecodeError{Format: f, Msg: msg, Err: err}
}

// guard converts an engine panic on hostile input into a DecodeError.
func guard(f Format, err *error) {
	if r := recover(); r != nil {
		*err = decodeErr(f, "malformed input", fmt.Errorf("%v", r))
	}
}
