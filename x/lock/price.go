package lock

import (
	"fmt"
	"math"
	"strconv"

	"github.com/iov-one/custody/errors"
)

// DefaultPriceScale keeps two decimal places of a quote.
const DefaultPriceScale uint32 = 100

// FixedPointPrice is a price expressed as an integer number of 1/Scale
// units. It is bound to a record once, at creation, and never recomputed.
type FixedPointPrice struct {
	Value int64  `json:"value"`
	Scale uint32 `json:"scale"`
}

// Bind converts a raw oracle quote into its fixed point representation,
// rounding half away from zero.
func Bind(raw float64, scale uint32) (FixedPointPrice, error) {
	if scale == 0 {
		return FixedPointPrice{}, errors.Wrap(errors.ErrInput, "price scale must not be zero")
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return FixedPointPrice{}, errors.Wrapf(errors.ErrInput, "price %v is not a number", raw)
	}
	if raw < 0 {
		return FixedPointPrice{}, errors.Wrapf(errors.ErrInput, "negative price %v", raw)
	}
	v := math.Round(raw * float64(scale))
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if v >= float64(math.MaxInt64) {
		return FixedPointPrice{}, errors.Wrapf(errors.ErrInput, "price %v with scale %d overflows", raw, scale)
	}
	return FixedPointPrice{Value: int64(v), Scale: scale}, nil
}

// IsZero returns true for the zero value, which is never a bound price.
func (p FixedPointPrice) IsZero() bool {
	return p.Value == 0 && p.Scale == 0
}

// Validate returns an error if the price cannot be a bound price.
func (p FixedPointPrice) Validate() error {
	if p.IsZero() {
		return errors.Wrap(errors.ErrEmpty, "price")
	}
	if p.Scale == 0 {
		return errors.Wrap(errors.ErrInput, "price scale must not be zero")
	}
	if p.Value < 0 {
		return errors.Wrap(errors.ErrInput, "negative price")
	}
	return nil
}

// Float returns an approximation of the price, for display only.
func (p FixedPointPrice) Float() float64 {
	if p.Scale == 0 {
		return 0
	}
	return float64(p.Value) / float64(p.Scale)
}

// String returns the decimal representation when the scale is a power of
// ten, for example "65000.00", and "value/scale" otherwise.
func (p FixedPointPrice) String() string {
	digits, ok := decimalDigits(p.Scale)
	if !ok {
		return fmt.Sprintf("%d/%d", p.Value, p.Scale)
	}
	if digits == 0 {
		return strconv.FormatInt(p.Value, 10)
	}
	s := fmt.Sprintf("%0*d", digits+1, p.Value)
	return s[:len(s)-digits] + "." + s[len(s)-digits:]
}

func decimalDigits(scale uint32) (int, bool) {
	if scale == 0 {
		return 0, false
	}
	n := 0
	for scale > 1 {
		if scale%10 != 0 {
			return 0, false
		}
		scale /= 10
		n++
	}
	return n, true
}
