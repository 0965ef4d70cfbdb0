package repository

import "errors"

// ErrorKind classifies a failed Result so outer layers can pick a status
// code without parsing messages.
type ErrorKind int

const (
	// KindNone marks a successful result.
	KindNone ErrorKind = iota
	// KindValidation is a malformed request detected before any store access.
	KindValidation
	// KindConflict means the repository already exists.
	KindConflict
	// KindNotFound means the repository does not exist.
	KindNotFound
	// KindStore is an object store failure.
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Result is the envelope returned by every Manager operation.
//
// Expected failures never surface as Go errors: Success is false, Message
// describes the problem and Kind classifies it. Data is omitted from JSON
// when it holds its zero value.
type Result[T any] struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitzero"`
	Kind    ErrorKind `json:"-"`
}

// Ok builds a successful result.
func Ok[T any](message string, data T) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data, Kind: KindNone}
}

// Fail converts err into a failed result. The typed errors of this package
// provide both the message and the kind; anything else is reported as a
// store failure with a generic message.
func Fail[T any](err error) Result[T] {
	var (
		validation *ValidationError
		conflict   *ConflictError
		notFound   *NotFoundError
		storeErr   *StoreError
	)

	switch {
	case errors.As(err, &validation):
		return Result[T]{Message: validation.Message, Kind: KindValidation}
	case errors.As(err, &conflict):
		return Result[T]{Message: MsgAlreadyExists, Kind: KindConflict}
	case errors.As(err, &notFound):
		return Result[T]{Message: MsgDoesNotExist, Kind: KindNotFound}
	case errors.As(err, &storeErr):
		return Result[T]{Message: storeErr.Message, Kind: KindStore}
	default:
		return Result[T]{Message: "Unexpected storage error.", Kind: KindStore}
	}
}
