package issuance

import "errors"

var (
	// ErrAmountTooSmall rejects mints below the 0.01-unit minimum and
	// non-positive burn amounts.
	ErrAmountTooSmall = errors.New("issuance: amount below minimum")

	// ErrPriceZero rejects intervals too small to register a nonzero
	// price; the caller should retry with a larger amount.
	ErrPriceZero = errors.New("issuance: amount prices at zero")

	ErrInsufficientPayment = errors.New("issuance: payment below price")
	ErrInsufficientReserve = errors.New("issuance: reserve cannot cover payout")

	// ErrNotEligible is the single admission failure; the gate's decision
	// carries the specific reason.
	ErrNotEligible = errors.New("issuance: recipient not admitted")

	ErrCapExceeded = errors.New("issuance: supply cap exceeded")

	// ErrReentrancy rejects a call made while another mint or burn is
	// still in flight, including reentrant calls from a value transfer.
	ErrReentrancy = errors.New("issuance: reentrant call rejected")
)
