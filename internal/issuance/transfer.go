package issuance

import (
	"math/big"
	"sync"

	"github.com/veridian-labs/veridian-issuance/internal/ledger"
)

// Transferor moves native value out of the system for refunds and burn
// payouts. Implementations are synchronous; a returned error aborts the
// surrounding operation.
type Transferor interface {
	Send(addr string, amount *big.Int) error
}

// Book is an in-process transferor crediting an internal payout book. It
// stands in for an external value transport in the service and in tests.
type Book struct {
	mu      sync.Mutex
	credits map[string]*big.Int
}

func NewBook() *Book {
	return &Book{credits: make(map[string]*big.Int)}
}

func (b *Book) Send(addr string, amount *big.Int) error {
	if addr == "" {
		return ledger.ErrInvalidAccount
	}
	if amount == nil || amount.Sign() < 0 {
		return ledger.ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.credits[addr]
	if !ok {
		c = big.NewInt(0)
		b.credits[addr] = c
	}
	c.Add(c, amount)
	return nil
}

// Credited returns the total value sent to addr.
func (b *Book) Credited(addr string) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.credits[addr]; ok {
		return new(big.Int).Set(c)
	}
	return big.NewInt(0)
}
