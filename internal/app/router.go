package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgerhttp "github.com/meridian-data/meridian/internal/ledger/http"
	"github.com/meridian-data/meridian/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	LedgerHandler *ledgerhttp.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults. Health
// and metrics stay outside the bearer gate; the API sits behind it.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.Config != nil && params.Config.APITokenHash != "" {
			api.Use(BearerAuth(params.Logger, params.Config.APITokenHash))
		}
		api.Mount("/", params.LedgerHandler.Routes())
	})

	return r
}
