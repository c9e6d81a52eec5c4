package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/handlers/actorctx"
	"github.com/nkiryanov/pointsbot/internal/handlers/render"
	"github.com/nkiryanov/pointsbot/internal/logger"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

type accountResponse struct {
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username"`
	Available       int64      `json:"available"`
	Frozen          int64      `json:"frozen"`
	StreakDays      int        `json:"streak_days"`
	MaxStreakDays   int        `json:"max_streak_days"`
	TotalCheckins   int        `json:"total_checkins"`
	MonthlyCheckins int        `json:"monthly_checkins"`
	LastCheckinDate *time.Time `json:"last_checkin_date,omitempty"`
	Email           *string    `json:"email,omitempty"`
	EmailVerified   bool       `json:"email_verified"`
}

type transactionResponse struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	AccountID      int64      `json:"account_id"`
	CounterpartyID *int64     `json:"counterparty_id,omitempty"`
	Amount         int64      `json:"amount"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	Description    string     `json:"description,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func toAccountResponse(a models.Account) accountResponse {
	return accountResponse{
		UserID:          a.UserID,
		Username:        a.Username,
		Available:       a.Available,
		Frozen:          a.Frozen,
		StreakDays:      a.StreakDays,
		MaxStreakDays:   a.MaxStreakDays,
		TotalCheckins:   a.TotalCheckins,
		MonthlyCheckins: a.MonthlyCheckins,
		LastCheckinDate: a.LastCheckinDate,
		Email:           a.Email,
		EmailVerified:   a.EmailVerified,
	}
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID.String(),
		CreatedAt:      t.CreatedAt,
		AccountID:      t.AccountID,
		CounterpartyID: t.CounterpartyID,
		Amount:         t.Amount,
		Kind:           t.Kind,
		Status:         t.Status,
		Description:    t.Description,
		ExpiresAt:      t.ExpiresAt,
	}
}

// pathID reads the {id} path segment as user id
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func handleGetAccount(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid account id", http.StatusBadRequest)
			return
		}

		account, err := accountService.GetAccount(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, toAccountResponse(account))
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusNotFound)
		default:
			l.Error("Failed to get account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListTransactions(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		userID, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid account id", http.StatusBadRequest)
			return
		}

		// Ledger history is private to its owner
		if actor.UserID != userID && !actor.Admin {
			render.ServiceError(w, "Forbidden", http.StatusForbidden)
			return
		}

		opts := repository.ListTransactionsOpts{}
		if kind := r.URL.Query().Get("kind"); kind != "" {
			opts.Kinds = []string{kind}
		}
		if status := r.URL.Query().Get("status"); status != "" {
			opts.Statuses = []string{status}
		}
		if limit := r.URL.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n < 0 {
				render.ServiceError(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			opts.Limit = n
		}

		txs, err := accountService.ListTransactions(r.Context(), userID, opts)

		switch {
		case err == nil:
			response := make([]transactionResponse, 0, len(txs))
			for _, t := range txs {
				response = append(response, toTransactionResponse(t))
			}
			render.JSON(w, response)
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusNotFound)
		default:
			l.Error("Failed to list transactions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminAdjust(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		UserID int64  `json:"user_id" validate:"required"`
		Amount int64  `json:"amount" validate:"required"`
		Reason string `json:"reason" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		account, err := accountService.Adjust(r.Context(), req.UserID, req.Amount, req.Reason)

		switch {
		case err == nil:
			render.JSON(w, toAccountResponse(account))
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient funds", http.StatusPaymentRequired)
		default:
			l.Error("Failed to adjust balance", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
