package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/hub"
	"github.com/DoyleJ11/hoops-draft-backend/internal/ws"
)

type Deps struct {
	Hub     *hub.Hub
	Catalog catalog.Provider
	Logger  *zap.Logger
	WS      ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	r.Get("/healthz", Healthz(d.Hub, d.Logger))
	r.Get("/ws", ws.Handler(d.Hub, d.Logger, d.WS))

	r.Route("/api", func(r chi.Router) {
		r.Get("/resources", ListResources(d.Catalog))
		r.Get("/resources/{id}/candidates", ListCandidates(d.Catalog))
		r.Get("/rooms/{code}", GetRoom(d.Hub, d.Logger))
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
