package internal

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// POST /championships
func CreateChampionship(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChampionshipRequest
		if err := bindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := req.Validate(); err != nil {
			fail(c, err)
			return
		}

		ch, err := st.CreateChampionship(c.Request.Context(), req.Name, req.NumberPlayers)
		if err != nil {
			fail(c, err)
			return
		}

		actor := uid(c)
		st.LogAction(c.Request.Context(), &actor, "create_championship", idDetail("championship_id", ch.ID))
		c.JSON(http.StatusCreated, ch)
	}
}

// GET /championships?status=open|closed&q=&page=&page_size=
func ListChampionships(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := pagination(c)
		if err != nil {
			fail(c, err)
			return
		}
		f := ChampionshipFilter{Name: strings.TrimSpace(c.Query("q")), Pagination: p}
		switch c.Query("status") {
		case "", "all":
		case "open":
			closed := false
			f.Closed = &closed
		case "closed":
			closed := true
			f.Closed = &closed
		default:
			fail(c, invalid("status must be one of open, closed"))
			return
		}

		items, total, err := st.ListChampionships(c.Request.Context(), f)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, Page[Championship]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: total})
	}
}

// GET /championships/:id
func GetChampionship(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		ch, err := st.GetChampionship(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ch)
	}
}

// POST /championships/:id/join
func JoinChampionship(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		userID := uid(c)

		ch, err := st.Enroll(c.Request.Context(), id, userID)
		if err != nil {
			fail(c, err)
			return
		}

		st.LogAction(c.Request.Context(), &userID, "join_championship", idDetail("championship_id", id))
		c.JSON(http.StatusOK, ch)
	}
}

// POST /championships/:id/close_signups
//
// Closing twice is not an error: the second call answers with the games
// generated by the first.
func CloseSignups(st Store, m *Metrics, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}

		ch, games, alreadyClosed, err := st.CloseSignups(c.Request.Context(), id, now())
		if err != nil {
			fail(c, err)
			return
		}

		if !alreadyClosed {
			m.ChampionshipsClosed.Inc()
			m.GamesGenerated.Add(float64(len(games)))

			actor := uid(c)
			st.LogAction(c.Request.Context(), &actor, "close_signups", idDetail("championship_id", id))
			reqLog(c).WithField("championship_id", id).WithField("games", len(games)).Info("signups closed")
		}
		c.JSON(http.StatusOK, CloseSignupsOut{Championship: ch, Games: games})
	}
}

// GET /me/championships
func MyChampionships(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := st.ListUserChampionships(c.Request.Context(), uid(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
