package bridge

import (
	"github.com/iov-one/custody/errors"
)

// ErrPriceUnavailable is returned when no fresh enough quote can be bound
// to a new lock.
var ErrPriceUnavailable = errors.Register(1100, "price unavailable")

// Stages of a request. An error notification names the stage that rejected
// the request.
const (
	StageVerify  = "verify"
	StagePrice   = "price"
	StageCreate  = "create"
	StageSign    = "sign"
	StageRelease = "release"
)

// ReasonCode returns the code reported in an error notification. It is the
// registered code of the root error.
func ReasonCode(err error) uint32 {
	return errors.Code(err)
}
