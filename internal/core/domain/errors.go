package domain

import (
	"errors"
	"fmt"
)

var (
	ErrResumeNotFound = errors.New("resume not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTemporary      = errors.New("temporary failure")

	// Fraud analysis failure taxonomy.
	ErrExtractionMissing      = errors.New("extraction missing")
	ErrDetectorFailure        = errors.New("detector failure")
	ErrMalformedContentStream = errors.New("malformed content stream")
	ErrConfiguration          = errors.New("configuration error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
