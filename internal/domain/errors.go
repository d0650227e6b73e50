package domain

import (
	"errors"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Download errors
	ErrCancelled       = errors.New("process canceled")
	ErrCorruptedResult = errors.New("file corrupted")
	ErrTransfer        = errors.New("transfer failed")
)

// TransferError wraps a failure reported by a transfer engine.
// errors.Is(err, ErrTransfer) holds for every TransferError.
type TransferError struct {
	Err    error
	Source string
}

// Error returns the error message
func (e *TransferError) Error() string {
	if e.Err == nil {
		return ErrTransfer.Error()
	}
	if e.Source != "" {
		return e.Source + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap returns the underlying engine error
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransfer
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}

// NewTransferError creates a new transfer error
func NewTransferError(err error, source string) *TransferError {
	return &TransferError{Err: err, Source: source}
}

// IsCancelled returns true if the download was aborted by the user
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTransferError returns true if the error came from a transfer engine
func IsTransferError(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}
