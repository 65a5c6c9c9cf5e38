// Package policy loads the deployment policy file: privileged addresses,
// oracle configuration, and operational settings.
package policy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// Policy configures a deployment. Treasury and FeeRecipient are the two
// addresses exempt from admission checks; exactly one of OracleURL or
// Eligible must be set.
type Policy struct {
	// Treasury is the protocol treasury address.
	Treasury string `json:"treasury"`

	// FeeRecipient receives the 3% issuance fee.
	FeeRecipient string `json:"fee_recipient"`

	// OracleURL points at an external eligibility oracle. When empty the
	// static Eligible list is used instead.
	OracleURL string `json:"oracle_url,omitempty"`

	// Eligible is a static allowlist of admitted addresses, for
	// deployments without an external oracle.
	Eligible []string `json:"eligible,omitempty"`

	// EventDB is the path of the SQLite issuance record database. Empty
	// keeps records in memory only.
	EventDB string `json:"event_db,omitempty"`

	// InitialReserve, if provided, pre-funds the payout reserve with a
	// decimal base-denomination amount.
	InitialReserve *string `json:"initial_reserve,omitempty"`
}

func Load(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var p Policy
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) Validate() error {
	if p == nil {
		return errors.New("nil policy")
	}
	if p.Treasury == "" {
		return errors.New("policy: missing treasury address")
	}
	if p.FeeRecipient == "" {
		return errors.New("policy: missing fee_recipient address")
	}
	if p.OracleURL != "" && len(p.Eligible) > 0 {
		return errors.New("policy: oracle_url and eligible are mutually exclusive")
	}
	if p.OracleURL == "" && len(p.Eligible) == 0 {
		return errors.New("policy: one of oracle_url or eligible is required")
	}
	if p.OracleURL != "" && !strings.HasPrefix(p.OracleURL, "http") {
		return fmt.Errorf("policy: oracle_url %q is not an http(s) endpoint", p.OracleURL)
	}
	for i, a := range p.Eligible {
		if a == "" {
			return fmt.Errorf("policy: eligible[%d] is empty", i)
		}
	}
	return nil
}
