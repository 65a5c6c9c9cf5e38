// Package curve prices issuance against a logarithmic bonding curve.
// The unit price at supply x is proportional to ln(x/divisor + 1); the
// price of minting or burning a supply interval is the difference of the
// closed-form antiderivative at the interval endpoints, evaluated entirely
// in integer fixed point.
package curve

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/veridian-labs/veridian-issuance/internal/fixed128"
)

// Decimals is the fixed-point scale of supply amounts: one whole unit is
// 10^18 of the smallest denomination.
const Decimals = 18

var (
	// ErrRange is returned for a malformed interval: a negative bound or a
	// start above the end. Callers never construct one on purpose.
	ErrRange = errors.New("curve: malformed supply interval")

	// Unit is 10^Decimals, the smallest-denomination count of one unit.
	Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

	// Cap is the hard issuance ceiling: one billion whole units.
	Cap = new(big.Int).Mul(big.NewInt(1_000_000_000), Unit)

	// curveDivisor maps raw supply onto the curve's natural axis:
	// x = supply / curveDivisor.
	curveDivisor = big.NewInt(50_000_000)

	// priceMultiplier restores the combined antiderivative terms to the
	// reserve currency's smallest denomination.
	priceMultiplier = big.NewInt(1_250_000_000)

	// divisorUnits is curveDivisor * 10^18, the divisor applied when the
	// rescaled supply must stay dimensionless (the logarithm argument).
	divisorUnits = new(big.Int).Mul(curveDivisor, Unit)

	// unitShifted is 10^18 << 64, the 18-decimal one at the internal
	// 2^64-shifted working scale.
	unitShifted = new(big.Int).Lsh(Unit, 64)

	// one64 is 1.0 in the logarithm's 64.64 input representation.
	one64 = new(big.Int).Lsh(big.NewInt(1), 64)
)

// IntegralPrice returns the reserve-currency price of the supply interval
// [a, b]. Both bounds are 18-decimal supply amounts with 0 <= a <= b; any
// other interval returns ErrRange. The empty interval prices at zero, and
// rounding may price a near-empty interval at zero as well; rejecting
// zero prices is the caller's policy.
//
// Evaluation deliberately splits into two scaled paths: the logarithm
// argument is built in 64.64 form, while the linear antiderivative terms
// stay at 18-decimal scale shifted left 64 bits. Every intermediate then
// stays well inside 256 bits for the full supply range up to Cap.
func IntegralPrice(a, b *big.Int) (*big.Int, error) {
	if a == nil || b == nil || a.Sign() < 0 || b.Sign() < 0 || a.Cmp(b) > 0 {
		return nil, ErrRange
	}
	if a.Cmp(b) == 0 {
		return big.NewInt(0), nil
	}

	ta, err := endpointTerm(a)
	if err != nil {
		return nil, err
	}
	tb, err := endpointTerm(b)
	if err != nil {
		return nil, err
	}

	// Linear part of the antiderivative over the interval, at the same
	// shifted scale as the endpoint terms.
	span := new(big.Int).Sub(b, a)
	span.Lsh(span, 64)
	span.Quo(span, curveDivisor)

	inner := new(big.Int).Sub(tb, ta)
	inner.Sub(inner, span)
	if inner.Sign() <= 0 {
		// Rounding ate the whole sliver.
		return big.NewInt(0), nil
	}
	inner.Mul(inner, priceMultiplier)
	return inner.Rsh(inner, 64), nil
}

// endpointTerm evaluates (x/d + 1) * ln(x/d + 1) for the 18-decimal supply
// v, returned at 18-decimal scale shifted left 64 bits.
func endpointTerm(v *big.Int) (*big.Int, error) {
	// 64.64 logarithm argument: v * 2^64 / (d * 10^18) + 1.0
	arg := new(big.Int).Lsh(v, 64)
	arg.Quo(arg, divisorUnits)
	arg.Add(arg, one64)
	a256, overflow := uint256.FromBig(arg)
	if overflow {
		return nil, fmt.Errorf("curve: endpoint %s: %w", v, fixed128.ErrDomain)
	}
	l, err := fixed128.Ln(a256)
	if err != nil {
		return nil, fmt.Errorf("curve: endpoint %s: %w", v, err)
	}

	// 18-decimal linear endpoint x/d + 1, shifted left 64 bits.
	lin := new(big.Int).Lsh(v, 64)
	lin.Quo(lin, curveDivisor)
	lin.Add(lin, unitShifted)

	term := lin.Mul(lin, l.ToBig())
	return term.Rsh(term, 64), nil
}
