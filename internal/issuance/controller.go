// Package issuance orchestrates mint and burn against the bonding curve:
// pricing, fee extraction, admission gating, payment settlement with
// refund of overpayment, and the append-only record log. Each operation
// either completes fully or leaves no trace.
package issuance

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/veridian-labs/veridian-issuance/internal/curve"
	"github.com/veridian-labs/veridian-issuance/internal/eventstore"
	"github.com/veridian-labs/veridian-issuance/internal/gate"
	"github.com/veridian-labs/veridian-issuance/internal/ledger"
	"github.com/veridian-labs/veridian-issuance/internal/types"
)

// Config wires the controller's collaborators. Ledger, Gate and Transfer
// are required, as are non-zero treasury and fee recipient addresses.
type Config struct {
	Ledger       ledger.Ledger
	Gate         *gate.Gate
	Transfer     Transferor
	Events       eventstore.Sink // optional
	Treasury     string
	FeeRecipient string

	// InitialReserve pre-funds the payout reserve, for deployments that
	// take over an existing pool. May be nil.
	InitialReserve *big.Int
}

type Controller struct {
	cfg     Config
	reserve *big.Int
	sem     chan struct{}
}

func New(cfg Config) (*Controller, error) {
	if cfg.Ledger == nil || cfg.Gate == nil || cfg.Transfer == nil {
		return nil, errors.New("issuance: ledger, gate and transferor are required")
	}
	if cfg.Treasury == "" || cfg.FeeRecipient == "" {
		return nil, errors.New("issuance: treasury and fee recipient addresses are required")
	}
	reserve := big.NewInt(0)
	if cfg.InitialReserve != nil {
		if cfg.InitialReserve.Sign() < 0 {
			return nil, errors.New("issuance: negative initial reserve")
		}
		reserve.Set(cfg.InitialReserve)
	}
	return &Controller{cfg: cfg, reserve: reserve, sem: make(chan struct{}, 1)}, nil
}

// enter takes the single-operation guard without blocking. The execution
// model is one operation at a time; a blocking acquire would deadlock a
// reentrant call arriving from inside a value transfer, so contention is
// an error instead.
func (c *Controller) enter() error {
	select {
	case c.sem <- struct{}{}:
		return nil
	default:
		return ErrReentrancy
	}
}

func (c *Controller) leave() { <-c.sem }

// Result reports a settled mint or burn.
type Result struct {
	Price  *big.Int // reserve currency charged (mint) or paid out (burn)
	Fee    *big.Int // units issued to or retained by the fee recipient
	Net    *big.Int // units credited to (mint) or destroyed from (burn) the account
	Refund *big.Int // overpayment returned to the caller; zero on burn
}

// Mint issues amount units against a tendered payment: the 3% fee portion
// goes to the fee recipient, the remainder to account, and any payment
// above the curve price is refunded. Every failure aborts with no partial
// effects.
func (c *Controller) Mint(account string, amount, payment *big.Int) (*Result, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()

	if account == "" {
		return nil, ledger.ErrInvalidAccount
	}
	if payment == nil || payment.Sign() < 0 {
		return nil, ErrInsufficientPayment
	}

	supply := c.cfg.Ledger.TotalSupply()
	price, err := mintPriceAt(supply, amount)
	if err != nil {
		return nil, err
	}
	if payment.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: price %s, payment %s", ErrInsufficientPayment, price, payment)
	}

	fee := feeOf(amount)
	net := new(big.Int).Sub(amount, fee)

	resulting := new(big.Int).Add(c.cfg.Ledger.BalanceOf(account), net)
	if d := c.cfg.Gate.Admit(account, resulting, supply); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, d.Reason)
	}
	// The fee issuance passes the gate as well; the recipient is exempt
	// by identity.
	feeResulting := new(big.Int).Add(c.cfg.Ledger.BalanceOf(c.cfg.FeeRecipient), fee)
	if d := c.cfg.Gate.Admit(c.cfg.FeeRecipient, feeResulting, supply); !d.Allowed {
		return nil, fmt.Errorf("%w: fee recipient: %s", ErrNotEligible, d.Reason)
	}

	j := ledger.NewJournal(c.cfg.Ledger)
	if err := j.Mint(account, net); err != nil {
		j.Revert()
		return nil, err
	}
	if fee.Sign() > 0 {
		if err := j.Mint(c.cfg.FeeRecipient, fee); err != nil {
			j.Revert()
			return nil, err
		}
	}

	c.reserve.Add(c.reserve, price)
	refund := new(big.Int).Sub(payment, price)
	if refund.Sign() > 0 {
		// Outbound transfer is the last mutating step; its failure
		// unwinds everything above.
		if err := c.cfg.Transfer.Send(account, refund); err != nil {
			c.reserve.Sub(c.reserve, price)
			j.Revert()
			return nil, fmt.Errorf("issuance: refund transfer: %w", err)
		}
	}

	c.appendEvent(types.IssuanceRecord{
		Kind:    types.KindMint,
		Account: account,
		Amount:  amount.String(),
		Price:   price.String(),
		Time:    time.Now().UTC(),
	})
	return &Result{Price: price, Fee: fee, Net: net, Refund: refund}, nil
}

// Burn retires amount units held by account: the 3% fee portion is
// transferred (not destroyed) to the fee recipient, the remainder is
// destroyed, and the curve price of the destroyed interval is paid out of
// the reserve. Every failure aborts with no partial effects.
func (c *Controller) Burn(account string, amount *big.Int) (*Result, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()

	if account == "" {
		return nil, ledger.ErrInvalidAccount
	}

	supply := c.cfg.Ledger.TotalSupply()
	price, fee, burnAmount, err := burnPriceAt(supply, amount)
	if err != nil {
		return nil, err
	}
	if c.cfg.Ledger.BalanceOf(account).Cmp(amount) < 0 {
		return nil, ledger.ErrInsufficientBalance
	}
	if c.reserve.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: price %s, reserve %s", ErrInsufficientReserve, price, c.reserve)
	}
	if fee.Sign() > 0 {
		feeResulting := new(big.Int).Add(c.cfg.Ledger.BalanceOf(c.cfg.FeeRecipient), fee)
		if d := c.cfg.Gate.Admit(c.cfg.FeeRecipient, feeResulting, supply); !d.Allowed {
			return nil, fmt.Errorf("%w: fee recipient: %s", ErrNotEligible, d.Reason)
		}
	}

	j := ledger.NewJournal(c.cfg.Ledger)
	if fee.Sign() > 0 {
		if err := j.Transfer(account, c.cfg.FeeRecipient, fee); err != nil {
			j.Revert()
			return nil, err
		}
	}
	if err := j.Burn(account, burnAmount); err != nil {
		j.Revert()
		return nil, err
	}

	c.reserve.Sub(c.reserve, price)
	if err := c.cfg.Transfer.Send(account, price); err != nil {
		c.reserve.Add(c.reserve, price)
		j.Revert()
		return nil, fmt.Errorf("issuance: payout transfer: %w", err)
	}

	c.appendEvent(types.IssuanceRecord{
		Kind:    types.KindBurn,
		Account: account,
		Amount:  amount.String(),
		Price:   price.String(),
		Time:    time.Now().UTC(),
	})
	return &Result{Price: price, Fee: fee, Net: burnAmount, Refund: big.NewInt(0)}, nil
}

// QuoteMint prices a prospective mint at current supply. Read-only.
func (c *Controller) QuoteMint(amount *big.Int) (*types.Quote, error) {
	return QuoteMintAt(c.cfg.Ledger.TotalSupply(), amount)
}

// QuoteBurn prices a prospective burn at current supply. Read-only.
func (c *Controller) QuoteBurn(amount *big.Int) (*types.Quote, error) {
	return QuoteBurnAt(c.cfg.Ledger.TotalSupply(), amount)
}

// Reserve returns the current payout reserve.
func (c *Controller) Reserve() *big.Int {
	return new(big.Int).Set(c.reserve)
}

// Snapshot captures supply, reserve, the spot price of the next whole
// unit, and the admission phase.
func (c *Controller) Snapshot() (*types.CurveSnapshot, error) {
	supply := c.cfg.Ledger.TotalSupply()

	spot := "0"
	step := new(big.Int).Set(curve.Unit)
	if remaining := new(big.Int).Sub(curve.Cap, supply); remaining.Cmp(step) < 0 {
		step = remaining
	}
	if step.Sign() > 0 {
		if p, err := curve.IntegralPrice(supply, new(big.Int).Add(supply, step)); err == nil {
			spot = p.String()
		}
	}

	snap := &types.CurveSnapshot{
		Supply:    supply.String(),
		Reserve:   c.reserve.String(),
		SpotPrice: spot,
		Phase:     gate.PhaseOf(supply).String(),
		UpdatedAt: time.Now().UTC(),
	}
	snap.ETag = computeETag(snap)
	return snap, nil
}

func computeETag(s *types.CurveSnapshot) string {
	h := sha1.New()
	h.Write([]byte(s.Supply))
	h.Write([]byte{0})
	h.Write([]byte(s.Reserve))
	h.Write([]byte{0})
	h.Write([]byte(s.SpotPrice))
	h.Write([]byte{0})
	h.Write([]byte(s.Phase))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Controller) appendEvent(rec types.IssuanceRecord) {
	if c.cfg.Events == nil {
		return
	}
	if err := c.cfg.Events.Append(rec); err != nil {
		log.Printf("warn: event append failed: %v", err)
	}
}
