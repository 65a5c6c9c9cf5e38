package main

import (
	"flag"
	"log"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/veridian-labs/veridian-issuance/internal/eventstore"
	"github.com/veridian-labs/veridian-issuance/internal/gate"
	"github.com/veridian-labs/veridian-issuance/internal/issuance"
	"github.com/veridian-labs/veridian-issuance/internal/ledger"
	"github.com/veridian-labs/veridian-issuance/internal/oracle"
	"github.com/veridian-labs/veridian-issuance/internal/policy"
	"github.com/veridian-labs/veridian-issuance/pkg/cache"
	"github.com/veridian-labs/veridian-issuance/pkg/httpserver"
)

var (
	GitTag    = "dev"
	GitCommit = "unknown"
)

func main() {
	var (
		addr       = flag.String("addr", getEnv("VERIDIAN_HTTP_ADDR", ":8080"), "HTTP listen address")
		policyPath = flag.String("policy", getEnv("VERIDIAN_POLICY_PATH", "policy.json"), "Path to policy JSON file")
		cacheTTL   = flag.Duration("cache-ttl", 5*time.Second, "Curve snapshot cache TTL")
	)
	flag.Parse()

	pol, err := policy.Load(*policyPath)
	if err != nil {
		log.Fatalf("policy load failed: %v", err)
	}

	var elig oracle.Oracle
	if pol.OracleURL != "" {
		elig = oracle.NewClient(pol.OracleURL, &http.Client{Timeout: 5 * time.Second})
	} else {
		elig = oracle.NewStatic(pol.Eligible)
	}

	var (
		sink    eventstore.Sink
		history httpserver.History
	)
	if pol.EventDB != "" {
		store, err := eventstore.Open(pol.EventDB)
		if err != nil {
			log.Fatalf("event store open failed: %v", err)
		}
		defer store.Close()
		sink, history = store, store
	} else {
		mem := eventstore.NewMemory()
		sink, history = mem, mem
	}
	live := eventstore.NewBroadcaster(sink)

	var reserve *big.Int
	if pol.InitialReserve != nil {
		reserve, _ = new(big.Int).SetString(*pol.InitialReserve, 10)
		if reserve == nil {
			log.Fatalf("policy initial_reserve is not a decimal integer: %q", *pol.InitialReserve)
		}
	}

	ctrl, err := issuance.New(issuance.Config{
		Ledger:         ledger.NewMemory(),
		Gate:           gate.New(elig, pol.Treasury, pol.FeeRecipient),
		Transfer:       issuance.NewBook(),
		Events:         live,
		Treasury:       pol.Treasury,
		FeeRecipient:   pol.FeeRecipient,
		InitialReserve: reserve,
	})
	if err != nil {
		log.Fatalf("controller init failed: %v", err)
	}

	c := cache.NewSnapshotCache(ctrl, cache.Options{TTL: *cacheTTL})
	go c.RunRefresher()

	srv := httpserver.New(httpserver.Config{
		Controller: ctrl,
		Cache:      c,
		History:    history,
		Live:       live,
		RatePerMin: 60,
		Burst:      120,
		GitTag:     GitTag,
		GitCommit:  GitCommit,
	})

	log.Printf("Veridian Issuance API listening on %s (policy=%s)", *addr, *policyPath)
	log.Printf("Git tag: %s, Git commit: %s", GitTag, GitCommit)
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatal(err)
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
