package handlers

import (
	"net/http"
	"strconv"

	"github.com/nkiryanov/pointsbot/internal/handlers/render"
	"github.com/nkiryanov/pointsbot/internal/logger"
)

func handleLeaderboard(leaderboardService leaderboardService, l logger.Logger) http.Handler {
	type entry struct {
		Rank            int    `json:"rank"`
		UserID          int64  `json:"user_id"`
		Username        string `json:"username"`
		Available       int64  `json:"available"`
		StreakDays      int    `json:"streak_days"`
		MonthlyCheckins int    `json:"monthly_checkins"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				render.ServiceError(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		accounts, err := leaderboardService.Top(r.Context(), r.URL.Query().Get("by"), limit)
		if err != nil {
			l.Error("Failed to build leaderboard", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		entries := make([]entry, 0, len(accounts))
		for i, a := range accounts {
			entries = append(entries, entry{
				Rank:            i + 1,
				UserID:          a.UserID,
				Username:        a.Username,
				Available:       a.Available,
				StreakDays:      a.StreakDays,
				MonthlyCheckins: a.MonthlyCheckins,
			})
		}

		render.JSON(w, entries)
	})
}
