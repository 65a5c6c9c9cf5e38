// Package oracle classifies addresses as eligible holders. The authority
// is external; this package carries the HTTP client for it and a static
// allowlist implementation for offline use. Interpreting a failed oracle
// call is the caller's concern (the gate treats any fault as a denial).
package oracle

// Oracle answers whether an address may receive issued units. An error
// means the classification itself failed, not that the address is
// ineligible.
type Oracle interface {
	IsEligible(addr string) (bool, error)
}

// Static is an allowlist oracle backed by a fixed address set, used for
// CLI runs and policies that ship their eligibility list inline.
type Static struct {
	allow map[string]struct{}
}

func NewStatic(addrs []string) *Static {
	s := &Static{allow: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		s.allow[a] = struct{}{}
	}
	return s
}

func (s *Static) IsEligible(addr string) (bool, error) {
	_, ok := s.allow[addr]
	return ok, nil
}
