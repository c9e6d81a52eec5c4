package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/handlers/actorctx"
	"github.com/nkiryanov/pointsbot/internal/handlers/render"
	"github.com/nkiryanov/pointsbot/internal/logger"
	"github.com/nkiryanov/pointsbot/internal/models"
)

func handleProposeGift(giftService giftService, l logger.Logger) http.Handler {
	type request struct {
		ReceiverID  int64  `json:"receiver_id" validate:"required"`
		Amount      int64  `json:"amount" validate:"required,min=1"`
		Description string `json:"description" validate:"max=500"`
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

		gift, err := giftService.Propose(r.Context(), actor.UserID, req.ReceiverID, req.Amount, req.Description)

		switch {
		case err == nil:
			render.JSONWithStatus(w, toTransactionResponse(gift), http.StatusCreated)
		case errors.Is(err, apperrors.ErrGiftAmountOutOfBounds):
			render.ServiceError(w, "Gift amount is out of allowed bounds", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrGiftToSelf):
			render.ServiceError(w, "Can't gift points to yourself", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient funds", http.StatusPaymentRequired)
		default:
			l.Error("Failed to propose gift", "error", err, "sender", actor.UserID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// handleResolveGift serves accept, reject and cancel: they differ only
// in the service call
func handleResolveGift(l logger.Logger, resolve func(r *http.Request, giftID uuid.UUID, actorID int64) (models.Transaction, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		giftID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid gift id", http.StatusBadRequest)
			return
		}

		gift, err := resolve(r, giftID, actor.UserID)

		switch {
		case err == nil:
			render.JSON(w, toTransactionResponse(gift))
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			render.ServiceError(w, "Gift not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrForbidden):
			render.ServiceError(w, "Forbidden", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			render.ServiceError(w, "Gift already resolved", http.StatusConflict)
		default:
			l.Error("Failed to resolve gift", "error", err, "gift_id", giftID, "actor", actor.UserID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAcceptGift(giftService giftService, l logger.Logger) http.Handler {
	return handleResolveGift(l, func(r *http.Request, giftID uuid.UUID, actorID int64) (models.Transaction, error) {
		return giftService.Accept(r.Context(), giftID, actorID)
	})
}

func handleRejectGift(giftService giftService, l logger.Logger) http.Handler {
	return handleResolveGift(l, func(r *http.Request, giftID uuid.UUID, actorID int64) (models.Transaction, error) {
		return giftService.Reject(r.Context(), giftID, actorID)
	})
}

func handleCancelGift(giftService giftService, l logger.Logger) http.Handler {
	return handleResolveGift(l, func(r *http.Request, giftID uuid.UUID, actorID int64) (models.Transaction, error) {
		return giftService.Cancel(r.Context(), giftID, actorID)
	})
}
