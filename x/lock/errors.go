package lock

import (
	"github.com/iov-one/custody/errors"
)

// Lock extension takes codes 1000-1099.
var (
	ErrDuplicateRecord    = errors.Register(1000, "duplicate lock record")
	ErrDuplicateSignature = errors.Register(1001, "duplicate signature")
	ErrAlreadyFinalized   = errors.Register(1002, "already finalized")
	ErrUnauthorizedSigner = errors.Register(1003, "unauthorized signer")
	ErrInvalidAmount      = errors.Register(1004, "invalid amount")
	ErrInvalidState       = errors.Register(1005, "invalid state")
)

// IsConflict returns true if the error reports an operation that cannot be
// applied to the current state of a record. Retrying such an operation
// without changing the state first always fails the same way.
func IsConflict(err error) bool {
	return ErrDuplicateRecord.Is(err) ||
		ErrDuplicateSignature.Is(err) ||
		ErrAlreadyFinalized.Is(err) ||
		ErrInvalidState.Is(err) ||
		errors.ErrDuplicate.Is(err) ||
		errors.ErrState.Is(err) ||
		errors.ErrImmutable.Is(err)
}

// IsRetryable returns true if the failure was caused by a dependency and the
// same request may succeed later.
func IsRetryable(err error) bool {
	return errors.ErrDependency.Is(err) ||
		errors.ErrNotFinal.Is(err) ||
		errors.ErrUnavailable.Is(err) ||
		errors.ErrDatabase.Is(err)
}
