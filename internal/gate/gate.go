// Package gate enforces the supply-tier admission policy: while supply is
// inside the bootstrap tier every non-exempt recipient is held to a
// per-holder balance cap, and in every tier recipients must be classified
// eligible by the external oracle. The tier is re-derived from current
// supply on every call; nothing here is stateful.
package gate

import (
	"math/big"

	"github.com/veridian-labs/veridian-issuance/internal/curve"
	"github.com/veridian-labs/veridian-issuance/internal/oracle"
)

var (
	// BootstrapCeiling is the supply at or below which the bootstrap tier
	// applies: ten million whole units.
	BootstrapCeiling = new(big.Int).Mul(big.NewInt(10_000_000), curve.Unit)

	// HolderCap is the highest balance a non-exempt holder may end a
	// mutation with during bootstrap: one hundred thousand whole units.
	HolderCap = new(big.Int).Mul(big.NewInt(100_000), curve.Unit)
)

type Phase int

const (
	PhaseBootstrap Phase = iota
	PhaseOpen
)

func (p Phase) String() string {
	if p == PhaseOpen {
		return "open"
	}
	return "bootstrap"
}

// PhaseOf derives the admission phase from current supply. Burns that pull
// supply back under the ceiling make subsequent calls evaluate under
// bootstrap rules again; completed mutations are never revisited.
func PhaseOf(supply *big.Int) Phase {
	if supply.Cmp(BootstrapCeiling) > 0 {
		return PhaseOpen
	}
	return PhaseBootstrap
}

// Reason records why a decision came out the way it did. Oracle faults and
// plain rejections both deny admission; the distinction is kept for
// observability.
type Reason int

const (
	ReasonAllowed Reason = iota
	ReasonExempt
	ReasonRejected
	ReasonHolderCap
	ReasonOracleFault
)

func (r Reason) String() string {
	switch r {
	case ReasonAllowed:
		return "allowed"
	case ReasonExempt:
		return "exempt"
	case ReasonRejected:
		return "rejected by oracle"
	case ReasonHolderCap:
		return "bootstrap holder cap exceeded"
	case ReasonOracleFault:
		return "oracle fault"
	}
	return "unknown"
}

type Decision struct {
	Allowed bool
	Reason  Reason
	Phase   Phase
}

type Gate struct {
	oracle       oracle.Oracle
	treasury     string
	feeRecipient string
}

func New(o oracle.Oracle, treasury, feeRecipient string) *Gate {
	return &Gate{oracle: o, treasury: treasury, feeRecipient: feeRecipient}
}

// Admit evaluates a net-positive balance change for recipient, given the
// balance the recipient would hold afterwards and the supply before the
// mutation. A failed oracle call denies admission (fail-safe closed)
// instead of propagating the fault.
func (g *Gate) Admit(recipient string, resulting, supply *big.Int) Decision {
	phase := PhaseOf(supply)
	if recipient == g.treasury || recipient == g.feeRecipient {
		return Decision{Allowed: true, Reason: ReasonExempt, Phase: phase}
	}
	ok, err := g.oracle.IsEligible(recipient)
	if err != nil {
		return Decision{Reason: ReasonOracleFault, Phase: phase}
	}
	if !ok {
		return Decision{Reason: ReasonRejected, Phase: phase}
	}
	if phase == PhaseBootstrap && resulting.Cmp(HolderCap) > 0 {
		return Decision{Reason: ReasonHolderCap, Phase: phase}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed, Phase: phase}
}
