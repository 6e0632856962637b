// internal/transport/httpapi/router.go
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loanwise-engine/internal/common/logger"
	"loanwise-engine/internal/common/metrics"
)

// NewRouter wires the middleware stack and the API routes.
func NewRouter(h *Handler, log logger.Logger) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(30 * time.Second))
	router.Use(requestLogger(log))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/applications", func(r chi.Router) {
		r.Post("/start", h.start)
		r.Route("/{appID}", func(r chi.Router) {
			r.Get("/", h.getApplication)
			r.Post("/profile", h.submitProfile)
			r.Post("/emi", h.selectEMI)
			r.Post("/kyc", h.submitKYC)
			r.Post("/eligibility", h.evaluateEligibility)
			r.Post("/sanction", h.sanction)
		})
	})

	return router
}

// requestLogger emits one structured line per request and feeds the
// duration histogram, labelled by route pattern rather than raw path so
// application identifiers do not explode the cardinality.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			status := ww.Status()

			metrics.HTTPRequestDuration.
				WithLabelValues(route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())

			log.Info("http request", map[string]interface{}{
				"method":   r.Method,
				"route":    route,
				"status":   status,
				"duration": elapsed.String(),
			})
		})
	}
}
