package issuance

import (
	"math/big"

	"github.com/veridian-labs/veridian-issuance/internal/curve"
	"github.com/veridian-labs/veridian-issuance/internal/types"
)

var (
	// MinMintAmount is the smallest amount a mint may request: 0.01 units.
	MinMintAmount = new(big.Int).Div(curve.Unit, big.NewInt(100))

	feeNumerator   = big.NewInt(3)
	feeDenominator = big.NewInt(100)
)

// feeOf returns the issuance fee on amount: floor(amount * 3 / 100).
func feeOf(amount *big.Int) *big.Int {
	f := new(big.Int).Mul(amount, feeNumerator)
	return f.Quo(f, feeDenominator)
}

// mintPriceAt prices minting amount on top of supply.
func mintPriceAt(supply, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Cmp(MinMintAmount) < 0 {
		return nil, ErrAmountTooSmall
	}
	after := new(big.Int).Add(supply, amount)
	if after.Cmp(curve.Cap) > 0 {
		return nil, ErrCapExceeded
	}
	price, err := curve.IntegralPrice(supply, after)
	if err != nil {
		return nil, err
	}
	if price.Sign() == 0 {
		return nil, ErrPriceZero
	}
	return price, nil
}

// burnPriceAt prices burning amount out of supply. The fee portion is
// transferred to the fee recipient rather than destroyed, so the priced
// interval covers only the post-fee remainder actually leaving
// circulation.
func burnPriceAt(supply, amount *big.Int) (price, fee, burnAmount *big.Int, err error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, nil, ErrAmountTooSmall
	}
	fee = feeOf(amount)
	burnAmount = new(big.Int).Sub(amount, fee)
	from := new(big.Int).Sub(supply, burnAmount)
	price, err = curve.IntegralPrice(from, supply)
	if err != nil {
		return nil, nil, nil, err
	}
	if price.Sign() == 0 {
		return nil, nil, nil, ErrPriceZero
	}
	return price, fee, burnAmount, nil
}

// QuoteMintAt prices minting amount at the given supply point. Pure. The
// quote's fee field reports the payment-side fee and is always zero; the
// 3% unit fee is applied at execution time.
func QuoteMintAt(supply, amount *big.Int) (*types.Quote, error) {
	price, err := mintPriceAt(supply, amount)
	if err != nil {
		return nil, err
	}
	return &types.Quote{Amount: amount.String(), Price: price.String(), Fee: "0"}, nil
}

// QuoteBurnAt prices burning amount at the given supply point. Pure; the
// fee field behaves as in QuoteMintAt.
func QuoteBurnAt(supply, amount *big.Int) (*types.Quote, error) {
	price, _, _, err := burnPriceAt(supply, amount)
	if err != nil {
		return nil, err
	}
	return &types.Quote{Amount: amount.String(), Price: price.String(), Fee: "0"}, nil
}
