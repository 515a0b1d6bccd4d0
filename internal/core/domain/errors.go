package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuditNotFound  = errors.New("audit not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrStepIncomplete = errors.New("wizard step incomplete")
	ErrUpload         = errors.New("upload failed")
	ErrDelivery       = errors.New("delivery failed")
	ErrRender         = errors.New("render failed")
	ErrTemporary      = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// Invalid builds an ErrInvalidInput error with a formatted message.
func Invalid(operation, format string, args ...any) error {
	return WrapError(ErrInvalidInput, operation, fmt.Errorf(format, args...))
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
