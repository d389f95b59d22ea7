package web

import (
	"net/http"
	"strings"

	"couple-pairing-service/internal/usecase"

	"github.com/rs/zerolog"
)

// Server is the internal admin API: stats, account listing and couple
// moderation. It sits on its own port behind a static bearer key.
type Server struct {
	statsUC   usecase.StatsUseCase
	accountUC usecase.AccountUseCase
	coupleUC  usecase.CoupleUseCase
	apiKey    string
	log       *zerolog.Logger
}

func NewServer(
	statsUC usecase.StatsUseCase,
	accountUC usecase.AccountUseCase,
	coupleUC usecase.CoupleUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		statsUC:   statsUC,
		accountUC: accountUC,
		coupleUC:  coupleUC,
		apiKey:    apiKey,
		log:       logger,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/stats", s.authMiddleware(statsHandler(s.statsUC)))
	mux.Handle("/api/v1/accounts", s.authMiddleware(accountsListHandler(s.accountUC)))

	couplesRouter := s.authMiddleware(s.couplesRouter())
	mux.Handle("/api/v1/couples/", couplesRouter)
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// couplesRouter handles /api/v1/couples/{id}/status.
func (s *Server) couplesRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/couples/")
		path = strings.TrimSuffix(path, "/")

		parts := strings.Split(path, "/")
		if len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPut {
			coupleStatusHandler(s.coupleUC, parts[0])(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
