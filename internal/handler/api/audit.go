package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	domrepo "TradeCore/internal/domain/repository"
	icache "TradeCore/internal/service/cache"
	"TradeCore/internal/service/metrics"
	"TradeCore/internal/service/ratelimit"
	applogger "TradeCore/pkg/logger"
)

// AuditHandler serves the decision and fill history out of the audit store.
// History queries hit ClickHouse, so responses are rate limited and cached.
type AuditHandler struct {
	audit domrepo.AuditQuery
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewAuditHandler(audit domrepo.AuditQuery) *AuditHandler {
	metrics.Register()
	return &AuditHandler{audit: audit, rl: ratelimit.New()}
}

func (h *AuditHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *AuditHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *AuditHandler) Decisions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "decisions"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		n := parseInt(r.URL.Query().Get("n"), 100)
		if !h.rl.Allow(r.RemoteAddr+":decisions", 5, 2) {
			if h.l != nil {
				h.l.Warn("audit.decisions rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "decisions:" + strconv.Itoa(n)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("audit.decisions cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("audit.decisions cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("audit.decisions write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("audit.decisions cache_miss", applogger.String("key", cacheKey))
			}
		}
		res, err := h.audit.RecentDecisions(r.Context(), n)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("audit.decisions error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("audit.decisions marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 10*time.Second); err != nil && h.l != nil {
				h.l.Warn("audit.decisions cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("audit.decisions write_error", applogger.Error(err))
		}
	}
}

func (h *AuditHandler) Fills() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "fills"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		n := parseInt(r.URL.Query().Get("n"), 100)
		if !h.rl.Allow(r.RemoteAddr+":fills", 5, 2) {
			if h.l != nil {
				h.l.Warn("audit.fills rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "fills:" + symbol + ":" + strconv.Itoa(n)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("audit.fills cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("audit.fills cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("audit.fills write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("audit.fills cache_miss", applogger.String("key", cacheKey))
			}
		}
		res, err := h.audit.RecentFills(r.Context(), symbol, n)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("audit.fills error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("audit.fills marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 10*time.Second); err != nil && h.l != nil {
				h.l.Warn("audit.fills cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("audit.fills write_error", applogger.Error(err))
		}
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
