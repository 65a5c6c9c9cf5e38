package ledger

import (
	"math/big"
	"sync"
)

// Memory is an in-process ledger keeping balances and total supply under a
// single lock.
type Memory struct {
	mu       sync.RWMutex
	supply   *big.Int
	balances map[string]*big.Int
}

func NewMemory() *Memory {
	return &Memory{supply: big.NewInt(0), balances: make(map[string]*big.Int)}
}

func (m *Memory) TotalSupply() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.supply)
}

func (m *Memory) BalanceOf(addr string) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (m *Memory) Mint(addr string, amount *big.Int) error {
	if addr == "" {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(addr, amount)
	m.supply.Add(m.supply, amount)
	return nil
}

func (m *Memory) Burn(addr string, amount *big.Int) error {
	if addr == "" {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debit(addr, amount); err != nil {
		return err
	}
	m.supply.Sub(m.supply, amount)
	return nil
}

func (m *Memory) Transfer(from, to string, amount *big.Int) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debit(from, amount); err != nil {
		return err
	}
	m.credit(to, amount)
	return nil
}

// credit and debit require the write lock.

func (m *Memory) credit(addr string, amount *big.Int) {
	b, ok := m.balances[addr]
	if !ok {
		b = big.NewInt(0)
		m.balances[addr] = b
	}
	b.Add(b, amount)
}

func (m *Memory) debit(addr string, amount *big.Int) error {
	b, ok := m.balances[addr]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.Sub(b, amount)
	return nil
}
