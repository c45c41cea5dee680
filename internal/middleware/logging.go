package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// HTTPObserver receives one observation per finished request.
type HTTPObserver interface {
	IncInFlight()
	DecInFlight()
	ObserveHTTP(method, route, status string, d time.Duration)
}

// Observe logs and measures each request under its chi route pattern.
func Observe(log logrus.FieldLogger, obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			obs.IncInFlight()
			defer obs.DecInFlight()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			d := time.Since(start)
			obs.ObserveHTTP(r.Method, route, strconv.Itoa(status), d)

			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"duration":   d.String(),
				"request_id": chimw.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
