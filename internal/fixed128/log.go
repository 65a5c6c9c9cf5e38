// Package fixed128 provides deterministic base-2 and natural logarithms
// over unsigned 64.64 fixed-point values. All arithmetic is integer-only
// on 256-bit words; results carry full 64-bit fractional precision and
// are within one unit in the last place of the exact value.
package fixed128

import (
	"errors"

	"github.com/holiman/uint256"
)

// FracBits is the number of fractional bits in the 64.64 representation:
// a raw value v encodes the real number v / 2^64.
const FracBits = 64

var (
	// ErrDomain is returned when a logarithm input is zero, below one, or
	// above 2^128 in 64.64 terms. Callers pre-scale their arguments onto
	// [1, 2^128], so hitting this indicates a supply value that cannot
	// occur under the issuance cap.
	ErrDomain = errors.New("fixed128: log input out of domain")

	// One is 1.0 in 64.64 fixed point.
	One = new(uint256.Int).Lsh(uint256.NewInt(1), FracBits)

	// domainMax is 2^128 in 64.64 representation (raw 2^192).
	domainMax = new(uint256.Int).Lsh(uint256.NewInt(1), 192)

	// ln(2) scaled by 2^128.
	ln2x128 = uint256.MustFromHex("0xB17217F7D1CF79ABC9E3B39803F2F6AF")
)

// Log2 returns the base-2 logarithm of x, where both x and the result are
// unsigned 64.64 fixed-point values. The valid input range is [1, 2^128];
// anything outside it returns ErrDomain.
//
// The integer part of the result is the position of the most significant
// bit of x relative to the fixed-point base. The fractional part is built
// one bit per iteration by repeatedly squaring the normalized mantissa and
// extracting the overflow bit, for exactly 64 iterations.
func Log2(x *uint256.Int) (*uint256.Int, error) {
	if x == nil || x.IsZero() || x.Lt(One) || x.Gt(domainMax) {
		return nil, ErrDomain
	}

	msb := x.BitLen() - 1 // 64 <= msb <= 192

	result := new(uint256.Int).Lsh(uint256.NewInt(uint64(msb-FracBits)), FracBits)

	// Normalize the mantissa into [2^127, 2^128).
	ux := new(uint256.Int)
	if shift := 127 - msb; shift >= 0 {
		ux.Lsh(x, uint(shift))
	} else {
		ux.Rsh(x, uint(msb-127))
	}

	var frac uint64
	for bit := uint64(1) << 63; bit != 0; bit >>= 1 {
		ux.Mul(ux, ux) // [2^254, 2^256), exact: mantissa is below 2^128
		b := ux[3] >> 63
		ux.Rsh(ux, uint(127+b))
		if b != 0 {
			frac |= bit
		}
	}

	return result.Or(result, uint256.NewInt(frac)), nil
}

// Ln returns the natural logarithm of x as a 64.64 fixed-point value, for
// x in [1, 2^128]. It is Log2(x) multiplied by the 128-bit-scaled ln(2)
// constant, with the combined fixed-point scales shifted back out.
func Ln(x *uint256.Int) (*uint256.Int, error) {
	l2, err := Log2(x)
	if err != nil {
		return nil, err
	}
	res := new(uint256.Int).Mul(l2, ln2x128)
	return res.Rsh(res, 128), nil
}
