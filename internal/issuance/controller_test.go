package issuance

import (
	"errors"
	"math/big"
	"testing"

	"github.com/veridian-labs/veridian-issuance/internal/curve"
	"github.com/veridian-labs/veridian-issuance/internal/eventstore"
	"github.com/veridian-labs/veridian-issuance/internal/gate"
	"github.com/veridian-labs/veridian-issuance/internal/ledger"
	"github.com/veridian-labs/veridian-issuance/internal/oracle"
	"github.com/veridian-labs/veridian-issuance/internal/types"
)

const (
	treasury = "vrd1treasury"
	feeAddr  = "vrd1fees"
	alice    = "vrd1alice"
	bob      = "vrd1bob"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), curve.Unit)
}

type harness struct {
	ctrl   *Controller
	ledger *ledger.Memory
	book   *Book
	events *eventstore.Memory
}

func newHarness(t *testing.T, eligible ...string) *harness {
	t.Helper()
	l := ledger.NewMemory()
	book := NewBook()
	events := eventstore.NewMemory()
	ctrl, err := New(Config{
		Ledger:       l,
		Gate:         gate.New(oracle.NewStatic(eligible), treasury, feeAddr),
		Transfer:     book,
		Events:       events,
		Treasury:     treasury,
		FeeRecipient: feeAddr,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return &harness{ctrl: ctrl, ledger: l, book: book, events: events}
}

func (h *harness) mustMint(t *testing.T, account string, amount *big.Int) *Result {
	t.Helper()
	q, err := h.ctrl.QuoteMint(amount)
	if err != nil {
		t.Fatalf("quote mint: %v", err)
	}
	price, _ := new(big.Int).SetString(q.Price, 10)
	res, err := h.ctrl.Mint(account, amount, price)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return res
}

func TestConstructionValidation(t *testing.T) {
	l := ledger.NewMemory()
	g := gate.New(oracle.NewStatic(nil), treasury, feeAddr)
	book := NewBook()

	if _, err := New(Config{Gate: g, Transfer: book, Treasury: treasury, FeeRecipient: feeAddr}); err == nil {
		t.Fatalf("missing ledger accepted")
	}
	if _, err := New(Config{Ledger: l, Gate: g, Transfer: book, Treasury: treasury}); err == nil {
		t.Fatalf("zero fee recipient accepted")
	}
	if _, err := New(Config{Ledger: l, Gate: g, Transfer: book, FeeRecipient: feeAddr}); err == nil {
		t.Fatalf("zero treasury accepted")
	}
	if _, err := New(Config{Ledger: l, Gate: g, Transfer: book, Treasury: treasury, FeeRecipient: feeAddr, InitialReserve: big.NewInt(-1)}); err == nil {
		t.Fatalf("negative reserve accepted")
	}
}

func TestMintSplitsFeeAndRefundsOverpayment(t *testing.T) {
	h := newHarness(t, alice)
	amount := units(1000)

	q, err := h.ctrl.QuoteMint(amount)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	price, _ := new(big.Int).SetString(q.Price, 10)
	delta := big.NewInt(12345)
	payment := new(big.Int).Add(price, delta)

	res, err := h.ctrl.Mint(alice, amount, payment)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if res.Price.Cmp(price) != 0 {
		t.Fatalf("price drifted between quote and mint: %s vs %s", res.Price, price)
	}
	if res.Refund.Cmp(delta) != 0 {
		t.Fatalf("refund: got %s want %s", res.Refund, delta)
	}
	if got := h.book.Credited(alice); got.Cmp(delta) != 0 {
		t.Fatalf("refund not delivered: %s", got)
	}

	wantFee := units(30) // floor(1000 * 3 / 100)
	if res.Fee.Cmp(wantFee) != 0 {
		t.Fatalf("fee: got %s want %s", res.Fee, wantFee)
	}
	if got := h.ledger.BalanceOf(feeAddr); got.Cmp(wantFee) != 0 {
		t.Fatalf("fee recipient balance: %s", got)
	}
	if got := h.ledger.BalanceOf(alice); got.Cmp(units(970)) != 0 {
		t.Fatalf("alice balance: %s", got)
	}
	if got := h.ledger.TotalSupply(); got.Cmp(amount) != 0 {
		t.Fatalf("supply: %s", got)
	}
	if got := h.ctrl.Reserve(); got.Cmp(price) != 0 {
		t.Fatalf("reserve: %s want %s", got, price)
	}

	evs, err := h.events.Recent(1)
	if err != nil || len(evs) != 1 || evs[0].Kind != types.KindMint || evs[0].Account != alice || evs[0].Price != price.String() {
		t.Fatalf("mint record wrong: %+v %v", evs, err)
	}
}

func TestMintPreconditionFailures(t *testing.T) {
	h := newHarness(t, alice)

	// below the 0.01-unit minimum
	tiny := new(big.Int).Sub(MinMintAmount, big.NewInt(1))
	if _, err := h.ctrl.Mint(alice, tiny, units(1)); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("expected ErrAmountTooSmall, got %v", err)
	}
	// exactly at the minimum, but at zero supply the sliver prices at zero
	if _, err := h.ctrl.Mint(alice, MinMintAmount, units(1)); !errors.Is(err, ErrPriceZero) {
		t.Fatalf("expected ErrPriceZero, got %v", err)
	}
	// payment short of the price
	q, err := h.ctrl.QuoteMint(units(5))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	price, _ := new(big.Int).SetString(q.Price, 10)
	short := new(big.Int).Sub(price, big.NewInt(1))
	if _, err := h.ctrl.Mint(alice, units(5), short); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}

	// nothing leaked
	if h.ledger.TotalSupply().Sign() != 0 || h.ctrl.Reserve().Sign() != 0 {
		t.Fatalf("failed mints left state behind")
	}
}

func TestMintNotEligible(t *testing.T) {
	h := newHarness(t, alice)
	if _, err := h.ctrl.Mint(bob, units(10), units(1_000_000)); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestMintBootstrapHolderCap(t *testing.T) {
	// net 103100*0.97 = 100007 units exceeds the bootstrap holder cap.
	amount := units(103_100)

	h := newHarness(t, alice)
	q, err := QuoteMintAt(big.NewInt(0), amount)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	payment, _ := new(big.Int).SetString(q.Price, 10)
	if _, err := h.ctrl.Mint(alice, amount, payment); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible under bootstrap, got %v", err)
	}

	// Same mint with supply past the bootstrap ceiling goes through.
	h = newHarness(t, alice)
	premine := new(big.Int).Add(gate.BootstrapCeiling, big.NewInt(1))
	if err := h.ledger.Mint(treasury, premine); err != nil {
		t.Fatalf("premine: %v", err)
	}
	h.mustMint(t, alice, amount)
	if got := h.ledger.BalanceOf(alice); got.Cmp(units(100_007)) != 0 {
		t.Fatalf("alice balance after open-phase mint: %s", got)
	}
}

func TestMintCapBoundary(t *testing.T) {
	amount := units(5)

	// Supply + amount == Cap succeeds.
	h := newHarness(t, alice)
	if err := h.ledger.Mint(treasury, new(big.Int).Sub(curve.Cap, amount)); err != nil {
		t.Fatalf("premine: %v", err)
	}
	h.mustMint(t, alice, amount)
	if got := h.ledger.TotalSupply(); got.Cmp(curve.Cap) != 0 {
		t.Fatalf("supply should sit exactly at cap: %s", got)
	}

	// One smallest denomination over the cap fails.
	h = newHarness(t, alice)
	over := new(big.Int).Sub(curve.Cap, amount)
	over.Add(over, big.NewInt(1))
	if err := h.ledger.Mint(treasury, over); err != nil {
		t.Fatalf("premine: %v", err)
	}
	if _, err := h.ctrl.Mint(alice, amount, units(1_000_000_000)); !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected ErrCapExceeded, got %v", err)
	}
}

func TestBurnRoundTrip(t *testing.T) {
	h := newHarness(t, alice)
	mintRes := h.mustMint(t, alice, units(1000))

	burnAmount := units(970) // everything alice holds
	res, err := h.ctrl.Burn(alice, burnAmount)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}

	// fee = floor(970 * 3 / 100) = 29.1 units, destroyed = 940.9 units
	wantFee := new(big.Int).Div(new(big.Int).Mul(burnAmount, big.NewInt(3)), big.NewInt(100))
	if res.Fee.Cmp(wantFee) != 0 {
		t.Fatalf("burn fee: got %s want %s", res.Fee, wantFee)
	}
	if got := h.ledger.BalanceOf(alice); got.Sign() != 0 {
		t.Fatalf("alice should be empty: %s", got)
	}
	// fee recipient holds mint fee plus transferred burn fee
	wantFees := new(big.Int).Add(units(30), wantFee)
	if got := h.ledger.BalanceOf(feeAddr); got.Cmp(wantFees) != 0 {
		t.Fatalf("fee recipient balance: got %s want %s", got, wantFees)
	}
	// supply dropped only by the destroyed portion
	wantSupply := new(big.Int).Sub(units(1000), res.Net)
	if got := h.ledger.TotalSupply(); got.Cmp(wantSupply) != 0 {
		t.Fatalf("supply: got %s want %s", got, wantSupply)
	}

	// Burn pays out no more than the mint charged, fees accounted.
	if res.Price.Cmp(mintRes.Price) > 0 {
		t.Fatalf("burn price %s exceeds mint price %s", res.Price, mintRes.Price)
	}
	if got := h.book.Credited(alice); got.Cmp(res.Price) != 0 {
		t.Fatalf("payout not delivered: %s", got)
	}
	wantReserve := new(big.Int).Sub(mintRes.Price, res.Price)
	if got := h.ctrl.Reserve(); got.Cmp(wantReserve) != 0 {
		t.Fatalf("reserve: got %s want %s", got, wantReserve)
	}

	evs, err := h.events.Recent(1)
	if err != nil || len(evs) != 1 || evs[0].Kind != types.KindBurn || evs[0].Account != alice {
		t.Fatalf("burn record wrong: %+v %v", evs, err)
	}
}

func TestBurnFailures(t *testing.T) {
	h := newHarness(t, alice)
	h.mustMint(t, alice, units(1000))

	if _, err := h.ctrl.Burn(alice, big.NewInt(0)); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("zero burn: %v", err)
	}
	if _, err := h.ctrl.Burn(alice, big.NewInt(10)); !errors.Is(err, ErrPriceZero) {
		t.Fatalf("dust burn: %v", err)
	}
	if _, err := h.ctrl.Burn(alice, units(971)); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("overdrawn burn: %v", err)
	}
	if _, err := h.ctrl.Burn(bob, units(1)); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("stranger burn: %v", err)
	}
}

func TestBurnInsufficientReserve(t *testing.T) {
	// Premined balances have no reserve backing them.
	h := newHarness(t, alice)
	if err := h.ledger.Mint(alice, units(1000)); err != nil {
		t.Fatalf("premine: %v", err)
	}
	if _, err := h.ctrl.Burn(alice, units(500)); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}
	if got := h.ledger.TotalSupply(); got.Cmp(units(1000)) != 0 {
		t.Fatalf("failed burn moved supply: %s", got)
	}
}

func TestQuoteFeeAlwaysZero(t *testing.T) {
	h := newHarness(t, alice)
	h.mustMint(t, alice, units(100))

	q, err := h.ctrl.QuoteMint(units(10))
	if err != nil {
		t.Fatalf("quote mint: %v", err)
	}
	if q.Fee != "0" {
		t.Fatalf("mint quote fee must read zero, got %s", q.Fee)
	}
	q, err = h.ctrl.QuoteBurn(units(10))
	if err != nil {
		t.Fatalf("quote burn: %v", err)
	}
	if q.Fee != "0" {
		t.Fatalf("burn quote fee must read zero, got %s", q.Fee)
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, alice)
	s1, err := h.ctrl.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if s1.Phase != "bootstrap" || s1.Supply != "0" || s1.ETag == "" {
		t.Fatalf("unexpected snapshot: %+v", s1)
	}

	h.mustMint(t, alice, units(50))
	s2, err := h.ctrl.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if s2.ETag == s1.ETag {
		t.Fatalf("etag did not change with state")
	}
	if s2.SpotPrice == "0" {
		t.Fatalf("spot price should be nonzero at supply %s", s2.Supply)
	}
}
