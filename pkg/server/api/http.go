// Package api provides HTTP and WebSocket API endpoints for the price server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/server/aggregator"
	"tc.com/price-oracle/pkg/server/sources"
	"tc.com/price-oracle/pkg/version"
)

// callerHeader carries the caller identity checked by the access controller.
const callerHeader = "X-Caller"

// Server represents the HTTP API server.
type Server struct {
	addr     string
	service  *aggregator.Service
	feed     *sources.MemFeed
	server   *http.Server
	logger   *logging.Logger
	wsServer *WebSocketServer // Optional WebSocket server for streaming
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, service *aggregator.Service, feed *sources.MemFeed, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		service: service,
		feed:    feed,
		logger:  logger,
	}
}

// SetWebSocketServer sets the WebSocket server for streaming updates.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.wsServer = ws
	s.service.SetRefreshListener(func(instrument string, agg aggregator.AggregatedPrice) {
		ws.SendUpdate(instrument, agg)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/aggregate", s.handleAggregate)
	mux.HandleFunc("/v1/validity", s.handleValidity)
	mux.HandleFunc("/v1/available", s.handleAvailable)
	mux.HandleFunc("/v1/admin/configure", s.handleConfigure)
	mux.HandleFunc("/v1/admin/weights", s.handleWeights)
	mux.HandleFunc("/v1/admin/priority", s.handlePriority)
	mux.HandleFunc("/v1/admin/active", s.handleActive)
	mux.HandleFunc("/v1/admin/refresh", s.handleRefresh)
	mux.HandleFunc("/v1/feeds/quote", s.handleQuoteIngest)
	mux.HandleFunc("/v1/feeds/round", s.handleRoundIngest)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	s.sendJSON(w, map[string]string{
		"status":  "ok",
		"version": version.AgentString(),
	})
}

// handlePrice handles GET /v1/price?instrument=SYMBOL.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	instrument := r.URL.Query().Get("instrument")
	if instrument == "" {
		status = "400"
		http.Error(w, "instrument is required", http.StatusBadRequest)
		return
	}

	reading, err := s.service.GetPrice(r.Context(), instrument)
	if err != nil {
		status = "503"
		s.logger.Warn("Price unavailable", "instrument", instrument, "error", err)
		http.Error(w, "No valid aggregate available", http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, map[string]interface{}{
		"instrument": instrument,
		"price":      reading.Price.String(),
		"timestamp":  reading.Timestamp.Format(time.RFC3339),
		"confidence": reading.Confidence,
		"source":     reading.Source,
	})
}

// handleAggregate handles GET /v1/aggregate?instrument=SYMBOL.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	instrument := r.URL.Query().Get("instrument")
	if instrument == "" {
		status = "400"
		http.Error(w, "instrument is required", http.StatusBadRequest)
		return
	}

	agg := s.service.GetAggregate(r.Context(), instrument)
	s.sendJSON(w, map[string]interface{}{
		"instrument":   instrument,
		"price":        agg.Price.String(),
		"timestamp":    agg.Timestamp.Format(time.RFC3339),
		"sources_used": agg.SourcesUsed,
		"confidence":   agg.Confidence,
		"valid":        agg.Valid,
	})
}

// handleValidity handles GET /v1/validity?instrument=SYMBOL.
func (s *Server) handleValidity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, "200", time.Since(start))
	}()

	instrument := r.URL.Query().Get("instrument")
	s.sendJSON(w, map[string]interface{}{
		"instrument": instrument,
		"valid":      s.service.GetCachedValidity(instrument),
	})
}

// handleAvailable handles GET /v1/available?instrument=SYMBOL.
func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, "200", time.Since(start))
	}()

	instrument := r.URL.Query().Get("instrument")
	s.sendJSON(w, map[string]interface{}{
		"instrument": instrument,
		"available":  s.service.IsPriceAvailable(r.Context(), instrument),
	})
}

type configureRequest struct {
	Instrument          string `json:"instrument"`
	Source              string `json:"source"`
	Adapter             string `json:"adapter"`
	WeightBPS           uint32 `json:"weight_bps"`
	MaxStalenessSeconds int64  `json:"max_staleness_seconds"`
}

// handleConfigure handles POST /v1/admin/configure.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(caller string, body []byte) error {
		var req configureRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}
		return s.service.ConfigureOracle(caller, req.Instrument, sources.SourceID(req.Source),
			req.Adapter, req.WeightBPS, time.Duration(req.MaxStalenessSeconds)*time.Second)
	})
}

type weightsRequest struct {
	Instrument string   `json:"instrument"`
	Sources    []string `json:"sources"`
	Weights    []uint32 `json:"weights"`
}

// handleWeights handles POST /v1/admin/weights.
func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(caller string, body []byte) error {
		var req weightsRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}
		ids := make([]sources.SourceID, len(req.Sources))
		for i, src := range req.Sources {
			ids[i] = sources.SourceID(src)
		}
		return s.service.UpdateWeights(caller, req.Instrument, ids, req.Weights)
	})
}

type priorityRequest struct {
	Order []string `json:"order"`
}

// handlePriority handles POST /v1/admin/priority.
func (s *Server) handlePriority(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(caller string, body []byte) error {
		var req priorityRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}
		order := make([]sources.SourceID, len(req.Order))
		for i, src := range req.Order {
			order[i] = sources.SourceID(src)
		}
		return s.service.SetPriorityOrder(caller, order)
	})
}

type activeRequest struct {
	Instrument string `json:"instrument"`
	Source     string `json:"source"`
	Active     bool   `json:"active"`
}

// handleActive handles POST /v1/admin/active.
func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(caller string, body []byte) error {
		var req activeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}
		return s.service.SetOracleActive(caller, req.Instrument, sources.SourceID(req.Source), req.Active)
	})
}

type refreshRequest struct {
	Instrument string `json:"instrument"`
}

// handleRefresh handles POST /v1/admin/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(caller string, body []byte) error {
		var req refreshRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}
		return s.service.UpdatePrice(r.Context(), caller, req.Instrument)
	})
}

type quoteIngestRequest struct {
	Source     string `json:"source"`
	Instrument string `json:"instrument"`
	Raw        string `json:"raw"`
	Decimals   uint8  `json:"decimals"`
	Confidence uint8  `json:"confidence"`
	Timestamp  int64  `json:"timestamp"` // Unix seconds; 0 = now
}

// handleQuoteIngest handles POST /v1/feeds/quote: publishers push direct feed
// quotes into the in-memory feed hub.
func (s *Server) handleQuoteIngest(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(_ string, body []byte) error {
		var req quoteIngestRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}

		source := sources.SourceID(req.Source)
		if source == "" {
			source = sources.SourceDirectFeed
		}
		if !sources.IsKnownSourceID(source) {
			return errBadRequest(fmt.Errorf("unknown source: %q", req.Source))
		}

		raw, ok := new(big.Int).SetString(req.Raw, 10)
		if !ok {
			return errBadRequest(fmt.Errorf("invalid raw value: %q", req.Raw))
		}

		ts := time.Now()
		if req.Timestamp != 0 {
			ts = time.Unix(req.Timestamp, 0)
		}

		s.feed.PushQuote(source, req.Instrument, raw, req.Decimals, req.Confidence, ts)
		return nil
	})
}

type roundIngestRequest struct {
	Source     string `json:"source"`
	Instrument string `json:"instrument"`
	Answer     string `json:"answer"`
	Decimals   uint8  `json:"decimals"`
	Timestamp  int64  `json:"timestamp"` // Unix seconds; 0 = now
}

// handleRoundIngest handles POST /v1/feeds/round: publishers append registry
// feed rounds into the in-memory feed hub.
func (s *Server) handleRoundIngest(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(_ string, body []byte) error {
		var req roundIngestRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return errBadRequest(err)
		}

		source := sources.SourceID(req.Source)
		if source == "" {
			source = sources.SourceRegistryFeedA
		}
		if !sources.IsKnownSourceID(source) {
			return errBadRequest(fmt.Errorf("unknown source: %q", req.Source))
		}

		answer, ok := new(big.Int).SetString(req.Answer, 10)
		if !ok {
			return errBadRequest(fmt.Errorf("invalid answer value: %q", req.Answer))
		}

		ts := time.Now()
		if req.Timestamp != 0 {
			ts = time.Unix(req.Timestamp, 0)
		}

		s.feed.PushRound(source, req.Instrument, answer, req.Decimals, ts)
		return nil
	})
}

// badRequestError marks malformed request payloads.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func errBadRequest(err error) error { return badRequestError{err: err} }

// handleMutation runs a mutating handler with shared method checking, body
// reading, error mapping and metrics.
func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, fn func(caller string, body []byte) error) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		status = "405"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "400"
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	caller := r.Header.Get(callerHeader)

	if err := fn(caller, body); err != nil {
		code, msg := mapError(err)
		status = strconv.Itoa(code)
		s.logger.Warn("Mutation failed", "path", r.URL.Path, "caller", caller, "error", err)
		http.Error(w, msg, code)
		return
	}

	s.sendJSON(w, map[string]string{"status": "ok"})
}

// mapError converts service errors to HTTP status codes.
func mapError(err error) (int, string) {
	var badReq badRequestError
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, aggregator.ErrAccessDenied):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, aggregator.ErrAllSourcesFailed):
		return http.StatusServiceUnavailable, "all sources failed"
	case errors.Is(err, aggregator.ErrInvalidWeight),
		errors.Is(err, aggregator.ErrLengthMismatch),
		errors.Is(err, aggregator.ErrNotConfigured),
		errors.Is(err, aggregator.ErrUnknownSource),
		errors.Is(err, aggregator.ErrEmptyOrder):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
