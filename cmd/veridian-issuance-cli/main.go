// Offline quoting tool: prices a mint or burn at an arbitrary supply
// point without a running service.
package main

import (
	"flag"
	"log"
	"math/big"
	"os"

	"github.com/goccy/go-json"

	"github.com/veridian-labs/veridian-issuance/internal/issuance"
	"github.com/veridian-labs/veridian-issuance/internal/types"
)

func main() {
	var (
		mode   = flag.String("mode", "mint", "Operation to quote: mint or burn")
		supply = flag.String("supply", "0", "Current supply, base denomination")
		amount = flag.String("amount", "", "Amount to quote, base denomination")
		pretty = flag.Bool("pretty", true, "Pretty-print JSON output")
	)
	flag.Parse()

	s, ok := new(big.Int).SetString(*supply, 10)
	if !ok {
		log.Fatalf("supply %q is not a decimal integer", *supply)
	}
	a, ok := new(big.Int).SetString(*amount, 10)
	if !ok {
		log.Fatalf("amount %q is not a decimal integer", *amount)
	}

	var (
		q   *types.Quote
		err error
	)
	switch *mode {
	case "mint":
		q, err = issuance.QuoteMintAt(s, a)
	case "burn":
		q, err = issuance.QuoteBurnAt(s, a)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatalf("quote failed: %v", err)
	}

	out := struct {
		Mode   string `json:"mode"`
		Supply string `json:"supply"`
		Amount string `json:"amount"`
		Price  string `json:"price"`
		Fee    string `json:"fee"`
	}{*mode, s.String(), q.Amount, q.Price, q.Fee}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode failed: %v", err)
	}
}
