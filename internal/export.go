package internal

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var rosterHeader = []string{
	"Name", "Email", "Phone Number", "Document", "Position", "Birth Date", "Team", "Status",
}

// GET /export/match/:id/players/csv
func ExportMatchPlayersCSV(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}

		roster, err := st.GameRoster(c.Request.Context(), id)
		if err != nil {
			if KindOf(err) == KindInternal {
				err = internalErr(err, "failed to export match players: "+err.Error())
			}
			fail(c, err)
			return
		}

		body, err := rosterCSV(roster)
		if err != nil {
			fail(c, internalErr(err, "failed to export match players: "+err.Error()))
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=match_%d_players.csv", id))
		c.Data(http.StatusOK, "text/csv", body)
	}
}

func rosterCSV(roster []RosterEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rosterHeader); err != nil {
		return nil, err
	}
	for _, r := range roster {
		status := "Pending"
		if r.Confirmed {
			status = "Confirmed"
		}
		birth := ""
		if r.BirthDate != nil {
			birth = r.BirthDate.Format(dateLayout)
		}
		position := ""
		if r.Position != nil {
			position = string(*r.Position)
		}
		if err := w.Write([]string{
			r.Name, r.Email, deref(r.PhoneNumber), deref(r.Document), position, birth, r.TeamSide, status,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
