package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/logger"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/metrics"

	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
)

// QueryRequest is the JSON body accepted by POST /query.
type QueryRequest struct {
	MustHave []string `json:"must_have"`
	AnyOf    []string `json:"any_of"`
}

// Handler exposes boolean queries over HTTP. The result block list is
// capped at resultCap entries; Count always reflects the uncapped total.
type Handler struct {
	engine    *Engine
	cache     *Cache
	metrics   *metrics.Metrics
	resultCap int
	logger    *slog.Logger
}

// NewHandler creates a Handler. cache may be nil to run without caching.
func NewHandler(engine *Engine, cache *Cache, m *metrics.Metrics, resultCap int) *Handler {
	return &Handler{
		engine:    engine,
		cache:     cache,
		metrics:   m,
		resultCap: resultCap,
		logger:    slog.Default().With("component", "query-handler"),
	}
}

// Query handles POST /query.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, pkgerrors.Newf(pkgerrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err))
		return
	}
	if len(req.MustHave) == 0 && len(req.AnyOf) == 0 {
		h.writeAppError(w, pkgerrors.New(pkgerrors.ErrInvalidInput, http.StatusBadRequest, "query must specify must_have or any_of"))
		return
	}

	var (
		result   *Result
		err      error
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req.MustHave, req.AnyOf, h.resultCap, func() (*Result, error) {
			return h.execute(ctx, req)
		})
	} else {
		result, err = h.execute(ctx, req)
	}
	if err != nil {
		log.Error("boolean query failed",
			"must_have", req.MustHave,
			"any_of", req.AnyOf,
			"error", err,
		)
		if h.metrics != nil {
			h.metrics.QueriesTotal.WithLabelValues("error").Inc()
		}
		// Store outages map to 503, everything else to 500.
		h.writeError(w, pkgerrors.HTTPStatusCode(err), "query failed")
		return
	}

	if h.metrics != nil {
		resultType := "hit"
		if result.Count == 0 {
			resultType = "zero_result"
		}
		h.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		h.metrics.QueryResultBlocks.Observe(float64(result.Count))
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
	}
	log.Info("boolean query completed",
		"must_have", len(req.MustHave),
		"any_of", len(req.AnyOf),
		"count", result.Count,
		"returned", len(result.Blocks),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// execute runs the boolean query and applies the result cap.
func (h *Handler) execute(ctx context.Context, req QueryRequest) (*Result, error) {
	blocks, err := h.engine.BooleanQuery(ctx, req.MustHave, req.AnyOf)
	if err != nil {
		return nil, err
	}
	result := &Result{Count: len(blocks), Blocks: blocks}
	if h.resultCap > 0 && len(blocks) > h.resultCap {
		result.Blocks = blocks[:h.resultCap]
	}
	if result.Blocks == nil {
		result.Blocks = []uint64{}
	}
	return result, nil
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err *pkgerrors.AppError) {
	h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Message)
}
