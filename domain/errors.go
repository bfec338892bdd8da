package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the mutation pipeline. Callers classify failures
// with errors.Is and decide whether an attempt slot was consumed.
var (
	// ErrNoCodeFound means the raw mutation text contained no extractable code.
	ErrNoCodeFound = errors.New("no code found in mutation text")

	// ErrSyntaxInvalid means the extracted code is not valid Go source.
	ErrSyntaxInvalid = errors.New("extracted code is not valid Go")

	// ErrUnsafeOperation means the extracted code matched the denylist.
	ErrUnsafeOperation = errors.New("extracted code contains unsafe operation")

	// ErrBackupFailed means a verified backup could not be created.
	// A mutation must never be applied without one.
	ErrBackupFailed = errors.New("backup could not be created or verified")

	// ErrApplyFailed means the mutation could not be applied to the target file.
	ErrApplyFailed = errors.New("mutation could not be applied")

	// ErrRestoreFailed means the target file could not be restored from its
	// backup. The target may be corrupted; this is escalated by the caller.
	ErrRestoreFailed = errors.New("target file could not be restored from backup")

	// ErrProviderUnavailable means no configured provider returned an answer.
	ErrProviderUnavailable = errors.New("no provider available")
)

// ProviderError describes a failed call to a single hosted model API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a provider error worth retrying,
// such as a rate limit or a transient server failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
