package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"couple-pairing-service/internal/usecase"
)

// Server wires the public pairing API onto a chi router.
type Server struct {
	accountUC usecase.AccountUseCase
	invUC     usecase.InvitationUseCase
	pairingUC usecase.PairingUseCase
	coupleUC  usecase.CoupleUseCase
	auth      *AuthManager
	log       *zerolog.Logger
}

func NewServer(
	accountUC usecase.AccountUseCase,
	invUC usecase.InvitationUseCase,
	pairingUC usecase.PairingUseCase,
	coupleUC usecase.CoupleUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		accountUC: accountUC,
		invUC:     invUC,
		pairingUC: pairingUC,
		coupleUC:  coupleUC,
		auth:      auth,
		log:       logger,
	}
}

// Router builds the route tree. Auth endpoints are public; everything under
// /api/v1 otherwise requires a session token.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return Chain(next, TraceID(), Recover(s.log), RequestLog(s.log)) })

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return Session(s.auth)(next) })

			r.Post("/invitations", s.handleSendInvitation)
			r.Get("/invitations", s.handleListInvitations)
			r.Post("/invitations/{id}/respond", s.handleRespondInvitation)

			r.Post("/couples", s.handleCreateCouple)
			r.Post("/couples/join", s.handleJoinByCode)
			r.Get("/couples/me", s.handleGetMyCouple)
			r.Post("/couples/leave", s.handleLeaveCouple)
			r.Put("/couples/{id}/settings", s.handleUpdateSettings)
			r.Put("/couples/{id}/anniversary", s.handleUpdateAnniversary)
			r.Post("/couples/{id}/code", s.handleRegenerateCode)
			r.Delete("/couples/{id}", s.handleDeleteCouple)

			r.Delete("/account", s.handleDeleteAccount)
		})
	})
	return r
}
