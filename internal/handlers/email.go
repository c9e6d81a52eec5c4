package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/handlers/actorctx"
	"github.com/nkiryanov/pointsbot/internal/handlers/render"
	"github.com/nkiryanov/pointsbot/internal/logger"
)

func handleEmailBind(emailService emailService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}

	type response struct {
		Email     string `json:"email"`
		ExpiresAt string `json:"expires_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		verification, err := emailService.Bind(r.Context(), actor.UserID, req.Email)

		switch {
		case err == nil:
			// The code itself travels by email only
			render.JSONWithStatus(w, response{
				Email:     verification.Email,
				ExpiresAt: verification.ExpiresAt.Format(time.RFC3339),
			}, http.StatusAccepted)
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrNotEnoughPointsToBind):
			render.ServiceError(w, "Not enough points to bind email", http.StatusPaymentRequired)
		default:
			l.Error("Failed to bind email", "error", err, "user_id", actor.UserID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleEmailVerify(emailService emailService, l logger.Logger) http.Handler {
	type request struct {
		Code string `json:"code" validate:"required,len=6"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		account, err := emailService.Verify(r.Context(), actor.UserID, req.Code)

		switch {
		case err == nil:
			render.JSON(w, toAccountResponse(account))
		case errors.Is(err, apperrors.ErrVerificationNotFound):
			render.ServiceError(w, "No pending verification", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrVerificationCodeMismatch):
			render.ServiceError(w, "Wrong verification code", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrVerificationExpired):
			render.ServiceError(w, "Verification code expired", http.StatusGone)
		case errors.Is(err, apperrors.ErrEmailTaken):
			render.ServiceError(w, "Email is bound to another account", http.StatusConflict)
		default:
			l.Error("Failed to verify email", "error", err, "user_id", actor.UserID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
