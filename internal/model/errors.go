package model

import "errors"

// Error kinds for a failed prediction. Match them with errors.Is.
var (
	ErrDecode    = errors.New("decode error")
	ErrFormat    = errors.New("format error")
	ErrInference = errors.New("inference error")
)

// Error tags an underlying failure with one of the kinds above while keeping
// the underlying message unchanged.
type Error struct {
	Kind error
	Err  error
}

func NewError(kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindOf returns the name of err's kind, or "unknown".
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrInference):
		return "inference"
	default:
		return "unknown"
	}
}
