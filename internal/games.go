package internal

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// GET /championships/:id/games
func ListChampionshipGames(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		p, err := pagination(c)
		if err != nil {
			fail(c, err)
			return
		}

		items, total, err := st.ListChampionshipGames(c.Request.Context(), id, p)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, Page[Game]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: total})
	}
}

// GET /games/:id
func GetGame(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		g, err := st.GetGame(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, g)
	}
}

// PATCH /games/:id/schedule
func ScheduleGame(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		var req scheduleRequest
		if err := bindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}

		var at *time.Time
		if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
			t, err := parseScheduleDate(strings.TrimSpace(*req.Date))
			if err != nil {
				fail(c, err)
				return
			}
			at = &t
		}
		if req.Location != nil {
			loc := strings.TrimSpace(*req.Location)
			req.Location = &loc
		}

		g, err := st.ScheduleGame(c.Request.Context(), id, at, req.Location)
		if err != nil {
			fail(c, err)
			return
		}

		actor := uid(c)
		st.LogAction(c.Request.Context(), &actor, "schedule_game", idDetail("game_id", id))
		c.JSON(http.StatusOK, g)
	}
}

// PATCH /games/:id/score
func ScoreGame(st Store, m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		var req scoreRequest
		if err := bindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}
		if err := req.Validate(); err != nil {
			fail(c, err)
			return
		}

		g, err := st.ScoreGame(c.Request.Context(), id, int(*req.HomeScore), int(*req.AwayScore))
		if err != nil {
			fail(c, err)
			return
		}

		m.GamesScored.Inc()
		actor := uid(c)
		st.LogAction(c.Request.Context(), &actor, "score_game", idDetail("game_id", id))
		c.JSON(http.StatusOK, g)
	}
}

// GET /me/games?status=upcoming|completed
func MyGames(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status GameStatus
		switch c.Query("status") {
		case "":
		case "upcoming":
			status = StatusScheduled
		case "completed":
			status = StatusFinished
		default:
			fail(c, invalid("status must be one of upcoming, completed"))
			return
		}
		p, err := pagination(c)
		if err != nil {
			fail(c, err)
			return
		}

		items, total, err := st.ListUserGames(c.Request.Context(), uid(c), status, p)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, Page[Game]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: total})
	}
}
