package shared

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
)

// Amount is a monetary value in indivisible base units.
type Amount uint64

// ErrOverflow indicates an arithmetic result outside the Amount range.
var ErrOverflow = NewReason(ErrInvalidInput, "Overflow", "amount overflow")

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, overflow := math.SafeAdd(uint64(a), uint64(b))
	if overflow {
		return 0, ErrOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b or ErrOverflow when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, overflow := math.SafeSub(uint64(a), uint64(b))
	if overflow {
		return 0, ErrOverflow
	}
	return Amount(diff), nil
}

// Percent returns floor(a*pct/100). The value is split into hundreds first so
// the product never overflows.
func (a Amount) Percent(pct uint8) (Amount, error) {
	if pct > 100 {
		return 0, fmt.Errorf("%w: percent %d out of range", ErrInvalidInput, pct)
	}
	whole := uint64(a) / 100 * uint64(pct)
	part := uint64(a) % 100 * uint64(pct) / 100
	return Amount(whole + part), nil
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool {
	return a == 0
}

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// MarshalJSON renders amounts as decimal strings so values above 2^53 survive
// JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts both quoted and bare decimal integers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: amount %s", ErrInvalidInput, string(data))
	}
	*a = Amount(v)
	return nil
}
