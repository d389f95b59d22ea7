package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/infra/logging"
	"couple-pairing-service/internal/usecase"
)

const dateLayout = "2006-01-02"

// ===== Wire shapes =====

type accountResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	CoupleID     *string   `json:"couple_id,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		CoupleID:     a.CoupleID,
		RegisteredAt: a.RegisteredAt,
	}
}

type invitationResponse struct {
	ID              string    `json:"id"`
	SenderID        string    `json:"sender_id"`
	ReceiverID      string    `json:"receiver_id"`
	AnniversaryDate string    `json:"anniversary_date"`
	Message         string    `json:"message,omitempty"`
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}

func toInvitationResponse(inv *model.Invitation) invitationResponse {
	return invitationResponse{
		ID:              inv.ID,
		SenderID:        inv.SenderID,
		ReceiverID:      inv.ReceiverID,
		AnniversaryDate: inv.AnniversaryDate.Format(dateLayout),
		Message:         inv.Message,
		Status:          string(inv.Status),
		ExpiresAt:       inv.ExpiresAt,
		CreatedAt:       inv.CreatedAt,
	}
}

type coupleResponse struct {
	ID              string            `json:"id"`
	Members         []string          `json:"members"`
	PairingCode     string            `json:"pairing_code"`
	AnniversaryDate string            `json:"anniversary_date"`
	Status          string            `json:"status"`
	Settings        map[string]string `json:"settings"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toCoupleResponse(c *model.Couple) coupleResponse {
	return coupleResponse{
		ID:              c.ID,
		Members:         c.Members,
		PairingCode:     c.PairingCode,
		AnniversaryDate: c.AnniversaryDate.Format(dateLayout),
		Status:          string(c.Status),
		Settings:        c.Settings,
		CreatedAt:       c.CreatedAt,
	}
}

// ===== Helpers =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError translates the domain error taxonomy to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case domain.IsConflict(err):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvitationExpired):
		status, msg = http.StatusGone, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, err.Error()
	}

	l := logging.With(r.Context(), s.log)
	if status >= 500 {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, domain.ErrInvalidArgument
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, domain.ErrInvalidArgument
	}
	return t, nil
}

// ===== Auth =====

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.accountUC.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.accountUC.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.Mint(acct.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ===== Invitations =====

type sendInvitationRequest struct {
	ReceiverEmail   string `json:"receiver_email"`
	AnniversaryDate string `json:"anniversary_date"`
	Message         string `json:"message"`
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var req sendInvitationRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	anniversary, err := parseDate(req.AnniversaryDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	inv, err := s.invUC.Send(r.Context(), AccountIDFrom(r.Context()), req.ReceiverEmail, anniversary, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	accountID := AccountIDFrom(r.Context())

	var (
		invs []*model.Invitation
		err  error
	)
	switch box := r.URL.Query().Get("box"); box {
	case "", "received":
		invs, err = s.invUC.ListReceived(r.Context(), accountID)
	case "sent":
		invs, err = s.invUC.ListSent(r.Context(), accountID)
	default:
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]invitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitationResponse(inv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

type respondRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleRespondInvitation(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	inv, couple, err := s.invUC.Respond(r.Context(), chi.URLParam(r, "id"), AccountIDFrom(r.Context()), usecase.ResponseAction(req.Action))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if couple != nil {
		writeJSON(w, http.StatusOK, toCoupleResponse(couple))
		return
	}
	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

// ===== Couples =====

type createCoupleRequest struct {
	AnniversaryDate string `json:"anniversary_date"`
}

func (s *Server) handleCreateCouple(w http.ResponseWriter, r *http.Request) {
	var req createCoupleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	anniversary, err := parseDate(req.AnniversaryDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	couple, err := s.pairingUC.CreateCouple(r.Context(), AccountIDFrom(r.Context()), anniversary)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCoupleResponse(couple))
}

type joinRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleJoinByCode(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Code == "" {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	couple, err := s.pairingUC.JoinByCode(r.Context(), AccountIDFrom(r.Context()), req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupleResponse(couple))
}

func (s *Server) handleGetMyCouple(w http.ResponseWriter, r *http.Request) {
	couple, err := s.coupleUC.GetByMember(r.Context(), AccountIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupleResponse(couple))
}

func (s *Server) handleLeaveCouple(w http.ResponseWriter, r *http.Request) {
	if err := s.pairingUC.Leave(r.Context(), AccountIDFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings map[string]string
	if err := decodeBody(r, &settings); err != nil {
		s.writeError(w, r, err)
		return
	}
	couple, err := s.coupleUC.UpdateSettings(r.Context(), chi.URLParam(r, "id"), AccountIDFrom(r.Context()), settings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupleResponse(couple))
}

type anniversaryRequest struct {
	AnniversaryDate string `json:"anniversary_date"`
}

func (s *Server) handleUpdateAnniversary(w http.ResponseWriter, r *http.Request) {
	var req anniversaryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	anniversary, err := parseDate(req.AnniversaryDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	couple, err := s.coupleUC.UpdateAnniversary(r.Context(), chi.URLParam(r, "id"), AccountIDFrom(r.Context()), anniversary)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupleResponse(couple))
}

func (s *Server) handleRegenerateCode(w http.ResponseWriter, r *http.Request) {
	couple, err := s.coupleUC.RegeneratePairingCode(r.Context(), chi.URLParam(r, "id"), AccountIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoupleResponse(couple))
}

func (s *Server) handleDeleteCouple(w http.ResponseWriter, r *http.Request) {
	if err := s.pairingUC.DeleteCouple(r.Context(), chi.URLParam(r, "id"), AccountIDFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Account =====

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accountUC.Delete(r.Context(), AccountIDFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
