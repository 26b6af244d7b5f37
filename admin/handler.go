package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/fragcache/auth"
	"github.com/jonwraymond/fragcache/cache"
	"github.com/jonwraymond/fragcache/filecache"
	"github.com/jonwraymond/fragcache/health"
	"github.com/jonwraymond/fragcache/observe"
)

// PathClearer is implemented by backends that can clear below a sub-path.
type PathClearer interface {
	ClearPath(ctx context.Context, sub string) error
}

// StatsReporter is implemented by backends that can summarize their usage.
type StatsReporter interface {
	Stats(ctx context.Context, sub string) (filecache.Stats, error)
}

// Config configures the admin handler.
type Config struct {
	// Lookup returns the fragment serving a namespace. Required.
	Lookup func(namespace string) (*cache.Fragment, bool)

	// Authenticator and Authorizer guard the /fragments routes. Required.
	Authenticator auth.Authenticator
	Authorizer    auth.Authorizer

	// Health serves /healthz, /readyz and /health when set.
	Health *health.Aggregator

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// Logger records admin actions. Default: observe.NopLogger.
	Logger observe.Logger
}

type handler struct {
	lookup func(string) (*cache.Fragment, bool)
	logger observe.Logger
}

// NewHandler builds the admin mux.
func NewHandler(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	h := &handler{lookup: cfg.Lookup, logger: cfg.Logger}

	guard := func(action string, fn http.HandlerFunc) http.Handler {
		return auth.Middleware(cfg.Authenticator, cfg.Authorizer, action)(fn)
	}
	mux := http.NewServeMux()
	mux.Handle("POST /fragments/{namespace}/clear", guard("clear", h.clear))
	mux.Handle("GET /fragments/{namespace}/stats", guard("stats", h.stats))

	if cfg.Health != nil {
		health.RegisterHandlers(mux, cfg.Health)
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	return mux
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ns := r.PathValue("namespace")
	f, ok := h.lookup(ns)
	if !ok {
		http.Error(w, "unknown namespace", http.StatusNotFound)
		return
	}

	sub := r.URL.Query().Get("path")
	var err error
	if sub == "" {
		err = f.Clear(ctx)
	} else {
		pc, ok := f.Backend().(PathClearer)
		if !ok {
			http.Error(w, "backend cannot clear a sub-path", http.StatusBadRequest)
			return
		}
		err = pc.ClearPath(ctx, sub)
	}

	fields := []observe.Field{
		{Key: "namespace", Value: ns},
		{Key: "path", Value: sub},
		{Key: "principal", Value: auth.PrincipalFromContext(ctx)},
	}
	switch {
	case errors.Is(err, filecache.ErrPathEscape):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		h.logger.Error(ctx, "fragment clear failed", append(fields, observe.Err(err))...)
		http.Error(w, "clear failed", http.StatusInternalServerError)
	default:
		h.logger.Info(ctx, "fragment namespace cleared", fields...)
		w.WriteHeader(http.StatusNoContent)
	}
}

// StatsResponse is the body of a stats request.
type StatsResponse struct {
	Namespace string    `json:"namespace"`
	Path      string    `json:"path,omitempty"`
	Files     int       `json:"files"`
	Dirs      int       `json:"dirs"`
	Bytes     int64     `json:"bytes"`
	Newest    time.Time `json:"newest,omitzero"`
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ns := r.PathValue("namespace")
	f, ok := h.lookup(ns)
	if !ok {
		http.Error(w, "unknown namespace", http.StatusNotFound)
		return
	}
	sr, ok := f.Backend().(StatsReporter)
	if !ok {
		http.Error(w, "backend cannot report stats", http.StatusBadRequest)
		return
	}

	sub := r.URL.Query().Get("path")
	st, err := sr.Stats(ctx, sub)
	switch {
	case errors.Is(err, filecache.ErrPathEscape):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error(ctx, "fragment stats failed", observe.Field{Key: "namespace", Value: ns}, observe.Err(err))
		http.Error(w, "stats failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StatsResponse{
		Namespace: ns,
		Path:      sub,
		Files:     st.Files,
		Dirs:      st.Dirs,
		Bytes:     st.Bytes,
		Newest:    st.Newest,
	})
}
