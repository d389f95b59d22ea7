package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/usecase"
)

// statsHandler returns an http.HandlerFunc that serves pairing statistics.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := statsUC.Totals(r.Context())
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}

		response := struct {
			TotalAccounts       int            `json:"total_accounts"`
			CouplesByStatus     map[string]int `json:"couples_by_status"`
			InvitationsByStatus map[string]int `json:"invitations_by_status"`
		}{
			TotalAccounts:       totals.Accounts,
			CouplesByStatus:     map[string]int{},
			InvitationsByStatus: map[string]int{},
		}
		for status, n := range totals.CouplesByStatus {
			response.CouplesByStatus[string(status)] = n
		}
		for status, n := range totals.InvitationsByStatus {
			response.InvitationsByStatus[string(status)] = n
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

type adminAccount struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	DisplayName  string  `json:"display_name"`
	CoupleID     *string `json:"couple_id,omitempty"`
	RegisteredAt string  `json:"registered_at"`
}

// accountsListHandler returns a paginated list of accounts.
// It accepts 'offset' and 'limit' query parameters.
func accountsListHandler(accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50 // Default page size
		}
		if offset < 0 {
			offset = 0
		}

		accounts, err := accountUC.List(ctx, offset, limit)
		if err != nil {
			http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
			return
		}
		total, err := accountUC.Count(ctx)
		if err != nil {
			http.Error(w, "Failed to count accounts", http.StatusInternalServerError)
			return
		}

		data := make([]adminAccount, 0, len(accounts))
		for _, a := range accounts {
			data = append(data, adminAccount{
				ID:           a.ID,
				Email:        a.Email,
				DisplayName:  a.DisplayName,
				CoupleID:     a.CoupleID,
				RegisteredAt: a.RegisteredAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		response := struct {
			Data   []adminAccount `json:"data"`
			Total  int            `json:"total"`
			Limit  int            `json:"limit"`
			Offset int            `json:"offset"`
		}{
			Data:   data,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

type coupleStatusRequest struct {
	Status string `json:"status"`
}

// coupleStatusHandler moderates a couple (block, deactivate, reinstate).
func coupleStatusHandler(coupleUC usecase.CoupleUseCase, coupleID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req coupleStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		couple, err := coupleUC.SetStatus(r.Context(), coupleID, model.CoupleStatus(req.Status))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				http.Error(w, "Failed to update couple status", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}{ID: couple.ID, Status: string(couple.Status)})
	}
}
