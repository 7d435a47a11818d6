package l1decode

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure.
type Kind int

const (
	// KindIO means the path is missing or unreadable.
	KindIO Kind = iota + 1
	// KindDecode means the bytes are not a supported image container.
	KindDecode
	// KindFormat means the image has no lossless 8-bit greyscale projection.
	KindFormat
	// KindDimension means the image is larger than MaxPixels, or smaller
	// than one 2×2 cell in strict mode.
	KindDimension
)

// Sentinels for errors.Is matching against an *Error.
var (
	ErrIO        = errors.New("io error")
	ErrDecode    = errors.New("decode error")
	ErrFormat    = errors.New("format error")
	ErrDimension = errors.New("dimension error")
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindFormat:
		return "format"
	case KindDimension:
		return "dimension"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindIO:
		return ErrIO
	case KindDecode:
		return ErrDecode
	case KindFormat:
		return ErrFormat
	case KindDimension:
		return ErrDimension
	default:
		return nil
	}
}

// Error is a classified failure for one source path.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error for %q: %v", e.Kind, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
