package types

import "time"

// CurveSnapshot is an atomic view of the issuance state. All amounts are
// decimal strings of smallest-denomination integers to avoid float
// rounding in transport.
type CurveSnapshot struct {
	Supply    string    `json:"supply"`
	Reserve   string    `json:"reserve"`
	SpotPrice string    `json:"spot_price"`
	Phase     string    `json:"phase"`
	ETag      string    `json:"etag"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quote prices a prospective mint or burn against current supply. Fee is
// the payment-side fee, which is always zero: the issuance fee is charged
// in units at execution time, never in the payment currency.
type Quote struct {
	Amount string `json:"amount"`
	Price  string `json:"price"`
	Fee    string `json:"fee"`
}

const (
	KindMint = "mint"
	KindBurn = "burn"
)

// IssuanceRecord is one entry of the append-only mint/burn log. Account is
// the mint recipient or the burn caller.
type IssuanceRecord struct {
	Seq     int64     `json:"seq,omitempty"`
	Kind    string    `json:"kind"`
	Account string    `json:"account"`
	Amount  string    `json:"amount"`
	Price   string    `json:"price"`
	Time    time.Time `json:"time"`
}
