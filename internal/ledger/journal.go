package ledger

import (
	"log"
	"math/big"
)

// Journal applies mutations to a ledger while recording their inverses, so
// a multi-step operation can be unwound in reverse order when a later step
// fails. A journal is single-use and not safe for concurrent use.
type Journal struct {
	l     Ledger
	undos []func() error
}

func NewJournal(l Ledger) *Journal {
	return &Journal{l: l}
}

func (j *Journal) Mint(addr string, amount *big.Int) error {
	if err := j.l.Mint(addr, amount); err != nil {
		return err
	}
	a := new(big.Int).Set(amount)
	j.undos = append(j.undos, func() error { return j.l.Burn(addr, a) })
	return nil
}

func (j *Journal) Burn(addr string, amount *big.Int) error {
	if err := j.l.Burn(addr, amount); err != nil {
		return err
	}
	a := new(big.Int).Set(amount)
	j.undos = append(j.undos, func() error { return j.l.Mint(addr, a) })
	return nil
}

func (j *Journal) Transfer(from, to string, amount *big.Int) error {
	if err := j.l.Transfer(from, to, amount); err != nil {
		return err
	}
	a := new(big.Int).Set(amount)
	j.undos = append(j.undos, func() error { return j.l.Transfer(to, from, a) })
	return nil
}

// Revert unwinds every applied mutation, newest first. Inverse operations
// on a consistent ledger cannot fail; if one does, the failure is logged
// and the remaining undos still run.
func (j *Journal) Revert() {
	for i := len(j.undos) - 1; i >= 0; i-- {
		if err := j.undos[i](); err != nil {
			log.Printf("ledger journal: undo %d failed: %v", i, err)
		}
	}
	j.undos = nil
}
