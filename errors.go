package roarguard

import (
	"errors"
	"fmt"

	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/frame"
	"github.com/hupe1980/roarguard/internal/freeze"
	"github.com/hupe1980/roarguard/internal/mem"
	"github.com/hupe1980/roarguard/internal/resource"
)

var (
	// ErrFrozen matches every FrozenStateError.
	ErrFrozen = errors.New("bitmap is frozen")
	// ErrInvalidArgument matches every InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIterationInvalidated matches every IterationInvalidatedError.
	ErrIterationInvalidated = errors.New("iteration invalidated")
	// ErrDeserialization matches every DeserializationError.
	ErrDeserialization = errors.New("deserialization failed")
	// ErrIO matches every IOError.
	ErrIO = errors.New("i/o error")
	// ErrClosed is returned when mutating a closed bitmap or using a closed executor.
	ErrClosed = errors.New("closed")
	// ErrResourceExhausted is returned when an offloaded operation needs more
	// memory than the executor's limit allows.
	ErrResourceExhausted = errors.New("resource limit exceeded")
)

// FrozenStateError is returned by a mutating call while the bitmap is frozen.
// The call had no effect.
type FrozenStateError struct {
	Op     string
	Depth  int
	Sealed bool
	cause  error
}

func (e *FrozenStateError) Error() string {
	if e.Sealed {
		return fmt.Sprintf("%s: bitmap is a read-only view", e.Op)
	}
	return fmt.Sprintf("%s: bitmap is frozen (depth %d)", e.Op, e.Depth)
}

func (e *FrozenStateError) Is(target error) bool { return target == ErrFrozen }

func (e *FrozenStateError) Unwrap() error { return e.cause }

// InvalidArgumentError is returned before any engine call is made when an
// argument has the wrong shape.
type InvalidArgumentError struct {
	Arg   string
	Msg   string
	cause error
}

func (e *InvalidArgumentError) Error() string {
	if e.Arg == "" {
		return "invalid argument: " + e.Msg
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Msg)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func (e *InvalidArgumentError) Unwrap() error { return e.cause }

func invalidArg(arg, msg string) error {
	return &InvalidArgumentError{Arg: arg, Msg: msg}
}

// IterationInvalidatedError is returned by a cursor whose source was
// mutated after the cursor started. The cursor is finished; the bitmap is not affected.
type IterationInvalidatedError struct {
	Captured uint64
	Current  uint64
}

func (e *IterationInvalidatedError) Error() string {
	return fmt.Sprintf("iteration invalidated: bitmap changed from version %d to %d", e.Captured, e.Current)
}

func (e *IterationInvalidatedError) Is(target error) bool { return target == ErrIterationInvalidated }

// DeserializationError reports malformed or truncated input.
type DeserializationError struct {
	Format codec.Format
	Msg    string
	cause  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialize %s: %s", e.Format, e.Msg)
}

func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }

func (e *DeserializationError) Unwrap() error { return e.cause }

// IOError is a normalized file-system failure.
type IOError struct {
	// Message is human readable, e.g. "no such file or directory".
	Message string
	// Code is the errno name, e.g. "ENOENT". Empty if the failure had no errno.
	Code string
	// Syscall is the failing operation, e.g. "open".
	Syscall string
	// Path is the offending path.
	Path  string
	cause error
}

func (e *IOError) Error() string {
	var msg string
	switch {
	case e.Code != "" && e.Path != "":
		msg = fmt.Sprintf("%s: %s, %s '%s'", e.Code, e.Message, e.Syscall, e.Path)
	case e.Code != "":
		msg = fmt.Sprintf("%s: %s, %s", e.Code, e.Message, e.Syscall)
	case e.Path != "":
		msg = fmt.Sprintf("%s, %s '%s'", e.Message, e.Syscall, e.Path)
	default:
		msg = e.Message
	}
	return msg
}

func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *IOError) Unwrap() error { return e.cause }

// translateError maps sub-package errors onto the public taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already translated.
	var (
		fse *FrozenStateError
		iae *InvalidArgumentError
		iie *IterationInvalidatedError
		dse *DeserializationError
		ioe *IOError
	)
	if errors.As(err, &fse) || errors.As(err, &iae) || errors.As(err, &iie) ||
		errors.As(err, &dse) || errors.As(err, &ioe) {
		return err
	}

	if errors.Is(err, freeze.ErrFrozen) || errors.Is(err, freeze.ErrSealed) {
		return &FrozenStateError{Op: "mutate", Sealed: errors.Is(err, freeze.ErrSealed), cause: err}
	}

	var de *codec.DecodeError
	if errors.As(err, &de) {
		return &DeserializationError{Format: de.Format, Msg: de.Msg, cause: err}
	}
	if errors.Is(err, frame.ErrTruncated) || errors.Is(err, frame.ErrBadMagic) ||
		errors.Is(err, frame.ErrUnsupportedVersion) || errors.Is(err, frame.ErrChecksum) ||
		errors.Is(err, frame.ErrCorrupt) || errors.Is(err, frame.ErrUnknownCompression) {
		return &DeserializationError{Msg: err.Error(), cause: err}
	}

	switch {
	case errors.Is(err, codec.ErrBufferTooSmall):
		return &InvalidArgumentError{Arg: "dst", Msg: err.Error(), cause: err}
	case errors.Is(err, codec.ErrUnknownFormat), errors.Is(err, codec.ErrNotDecodable), errors.Is(err, codec.ErrNotViewable):
		return &InvalidArgumentError{Arg: "format", Msg: err.Error(), cause: err}
	case errors.Is(err, codec.ErrMisaligned):
		return &InvalidArgumentError{Arg: "data", Msg: err.Error(), cause: err}
	case errors.Is(err, mem.ErrInvalidAlignment), errors.Is(err, mem.ErrInvalidLength):
		return &InvalidArgumentError{Arg: "alignment", Msg: err.Error(), cause: err}
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	if ioErr := asIOError(err); ioErr != nil {
		return ioErr
	}
	return err
}
