package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/hub"
	"github.com/DoyleJ11/dipclient/internal/scenario"
	"github.com/DoyleJ11/dipclient/internal/ws"
)

type Deps struct {
	Hub      *hub.Hub
	Tokens   *Tokens
	Template *scenario.Scenario
	Logger   *zap.Logger
	// Registry receives the request metrics and is served on /metrics.
	Registry *prometheus.Registry
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Template == nil {
		d.Template = scenario.Default()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	hd := &handlers{hub: d.Hub, template: d.Template, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(newMetrics(d.Registry), d.Logger))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/lobby", func(r chi.Router) {
		r.Use(RequireAuth(d.Tokens))
		r.Post("/", hd.CreateLobby)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", hd.GetLobby)
			r.Post("/start", hd.StartLobby)
			r.Get("/game", hd.GetGame)
			r.Get("/orders", hd.GetOrders)
			r.Post("/orders", hd.SubmitOrders)
			r.Post("/process", hd.ProcessPhase)
			r.Get("/ws", ws.Handler(d.Hub, d.Logger))
		})
	})
	return r
}
