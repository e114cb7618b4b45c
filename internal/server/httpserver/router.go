package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/trackvault/internal/logging"
)

type Deps struct {
	Tokens         TokenService
	Tracks         TrackStore
	Ingester       Ingester
	Logger         logging.Logger
	MaxUploadBytes int64
	// LoginRatePerMinute of 0 turns the login limiter off.
	LoginRatePerMinute int
	LoginRateBurst     int
}

// NewRouter wires every route:
//
//	GET    /
//	POST   /api/auth/login
//	POST   /api/auth/refresh
//	GET    /api/tracks
//	POST   /api/tracks/upload
//	POST   /api/tracks/youtube
//	DELETE /api/tracks/{filename}
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logging.Nop{}
	}

	auth := &authHandler{tokens: d.Tokens, log: log.With("module", "auth")}
	th := &tracksHandler{
		store:          d.Tracks,
		ingester:       d.Ingester,
		maxUploadBytes: d.MaxUploadBytes,
		log:            log.With("module", "tracks"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(panicRecovery(log))
	r.Use(corsHandler())

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Music Player API is running!"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if d.LoginRatePerMinute > 0 {
				limiter := newIPLimiter(d.LoginRatePerMinute, d.LoginRateBurst)
				r.With(limiter.middleware(log)).Post("/login", auth.login)
			} else {
				r.Post("/login", auth.login)
			}
			r.Post("/refresh", auth.refresh)
		})

		r.Route("/tracks", func(r chi.Router) {
			r.Use(accessTokenMiddleware(d.Tokens, log.With("module", "guard")))
			r.Get("/", th.list)
			r.Post("/upload", th.upload)
			r.Post("/youtube", th.importFromURL)
			r.Delete("/{filename}", th.delete)
		})
	})

	return r
}
