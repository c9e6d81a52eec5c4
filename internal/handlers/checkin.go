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

func handleCheckin(checkinService checkinService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username"`
	}

	type response struct {
		Account     accountResponse `json:"account"`
		BasePoints  int64           `json:"base_points"`
		BonusPoints int64           `json:"bonus_points"`
		StreakDays  int             `json:"streak_days"`
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

		result, err := checkinService.CheckIn(r.Context(), actor.UserID, req.Username, time.Now())

		switch {
		case err == nil:
			render.JSON(w, response{
				Account:     toAccountResponse(result.Account),
				BasePoints:  result.BasePoints,
				BonusPoints: result.BonusPoints,
				StreakDays:  result.StreakDays,
			})
		case errors.Is(err, apperrors.ErrAlreadyCheckedIn):
			render.ServiceError(w, "Already checked in today", http.StatusConflict)
		default:
			l.Error("Failed to check in", "error", err, "user_id", actor.UserID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
