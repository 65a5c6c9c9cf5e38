// Package httpserver exposes the issuance controller over REST plus a
// websocket feed of settled operations.
package httpserver

import (
	"context"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"nhooyr.io/websocket"

	"github.com/veridian-labs/veridian-issuance/internal/curve"
	"github.com/veridian-labs/veridian-issuance/internal/eventstore"
	"github.com/veridian-labs/veridian-issuance/internal/issuance"
	"github.com/veridian-labs/veridian-issuance/internal/ledger"
	"github.com/veridian-labs/veridian-issuance/internal/ratelimit"
	"github.com/veridian-labs/veridian-issuance/internal/types"
	"github.com/veridian-labs/veridian-issuance/pkg/cache"
	"github.com/veridian-labs/veridian-issuance/schema"
)

// History reads back persisted issuance records, newest first.
type History interface {
	Recent(limit int) ([]types.IssuanceRecord, error)
}

type Config struct {
	Controller *issuance.Controller
	Cache      *cache.SnapshotCache
	History    History                 // optional
	Live       *eventstore.Broadcaster // optional
	RatePerMin int
	Burst      int
	GitTag     string
	GitCommit  string
}

type Server struct {
	cfg     Config
	router  *mux.Router
	limiter *ratelimit.Limiter

	// opMu serializes mint and burn so concurrent requests queue instead
	// of bouncing off the controller's reentrancy guard.
	opMu sync.Mutex
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		limiter: ratelimit.New(cfg.RatePerMin, cfg.Burst),
	}
	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	s.router.HandleFunc("/openapi.yaml", s.openapi).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(s.limit)
	v1.HandleFunc("/curve", s.handleCurve).Methods(http.MethodGet)
	v1.HandleFunc("/quote/mint", s.handleQuoteMint).Methods(http.MethodGet)
	v1.HandleFunc("/quote/burn", s.handleQuoteBurn).Methods(http.MethodGet)
	v1.HandleFunc("/mint", s.handleMint).Methods(http.MethodPost)
	v1.HandleFunc("/burn", s.handleBurn).Methods(http.MethodPost)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events/live", s.handleEventsLive).Methods(http.MethodGet)
	return s
}

func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps controller failures onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, issuance.ErrAmountTooSmall),
		errors.Is(err, issuance.ErrPriceZero),
		errors.Is(err, curve.ErrRange),
		errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, issuance.ErrInsufficientPayment),
		errors.Is(err, issuance.ErrInsufficientReserve),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, issuance.ErrNotEligible):
		return http.StatusForbidden
	case errors.Is(err, issuance.ErrCapExceeded):
		return http.StatusConflict
	case errors.Is(err, issuance.ErrReentrancy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status  string `json:"status"`
		Time    string `json:"time"`
		Version string `json:"version,omitempty"`
		Commit  string `json:"commit,omitempty"`
	}{"ok", time.Now().UTC().Format(time.RFC3339), s.cfg.GitTag, s.cfg.GitCommit})
}

func (s *Server) openapi(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(schema.OpenAPI)
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	snap, fresh := s.cfg.Cache.Get()
	if snap == nil || !fresh {
		var err error
		snap, err = s.cfg.Cache.Update()
		if err != nil {
			writeErr(w, err)
			return
		}
	}
	if r.Header.Get("If-None-Match") == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", snap.ETag)
	w.Header().Set("Cache-Control", "public, max-age=5")
	writeJSON(w, http.StatusOK, snap)
}

func parseAmount(r *http.Request) (*big.Int, error) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		return nil, errors.New("missing amount parameter")
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("amount is not a decimal integer")
	}
	return n, nil
}

func (s *Server) handleQuoteMint(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	q, err := s.cfg.Controller.QuoteMint(amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleQuoteBurn(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	q, err := s.cfg.Controller.QuoteBurn(amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type mintRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Payment string `json:"payment"`
}

type mintResponse struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Net     string `json:"net"`
	Fee     string `json:"fee"`
	Price   string `json:"price"`
	Refund  string `json:"refund"`
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseBig(raw, field string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New(field + " is not a decimal integer")
	}
	return n, nil
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}
	amount, err := parseBig(req.Amount, "amount")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	payment, err := parseBig(req.Payment, "payment")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	s.opMu.Lock()
	res, err := s.cfg.Controller.Mint(req.Account, amount, payment)
	s.opMu.Unlock()
	if err != nil {
		writeErr(w, err)
		return
	}
	s.cfg.Cache.Invalidate()
	writeJSON(w, http.StatusOK, mintResponse{
		Account: req.Account,
		Amount:  amount.String(),
		Net:     res.Net.String(),
		Fee:     res.Fee.String(),
		Price:   res.Price.String(),
		Refund:  res.Refund.String(),
	})
}

type burnRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type burnResponse struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Burned  string `json:"burned"`
	Fee     string `json:"fee"`
	Payout  string `json:"payout"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}
	amount, err := parseBig(req.Amount, "amount")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	s.opMu.Lock()
	res, err := s.cfg.Controller.Burn(req.Account, amount)
	s.opMu.Unlock()
	if err != nil {
		writeErr(w, err)
		return
	}
	s.cfg.Cache.Invalidate()
	writeJSON(w, http.StatusOK, burnResponse{
		Account: req.Account,
		Amount:  amount.String(),
		Burned:  res.Net.String(),
		Fee:     res.Fee.String(),
		Payout:  res.Price.String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "event history not enabled"})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be in [1, 1000]"})
			return
		}
		limit = n
	}
	recs, err := s.cfg.History.Recent(limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []types.IssuanceRecord{}
	}
	writeJSON(w, http.StatusOK, struct {
		Events []types.IssuanceRecord `json:"events"`
	}{recs})
}

func (s *Server) handleEventsLive(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Live == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "live feed not enabled"})
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server shutting down")

	ch, cancel := s.cfg.Live.Subscribe(64)
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case rec, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			wctx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(wctx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
