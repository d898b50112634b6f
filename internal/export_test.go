package internal

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterCSV(t *testing.T) {
	phone := "+55 11 90000-0000"
	doc := "123.456.789-00"
	pos := Goalkeeper
	birth := Date{time.Date(1990, 7, 1, 0, 0, 0, 0, time.UTC)}

	body, err := rosterCSV([]RosterEntry{
		{Name: "Bárbara", Email: "barbara@league.test", PhoneNumber: &phone, Document: &doc,
			Position: &pos, BirthDate: &birth, TeamSide: "home", Confirmed: true},
		{Name: "Doe, Jane", Email: "jane@league.test", TeamSide: "away"},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rosterHeader, rows[0])
	assert.Equal(t, []string{"Bárbara", "barbara@league.test", phone, doc, "goalkeeper", "1990-07-01", "home", "Confirmed"}, rows[1])
	assert.Equal(t, []string{"Doe, Jane", "jane@league.test", "", "", "", "", "away", "Pending"}, rows[2])
}

func TestRosterCSV_Empty(t *testing.T) {
	body, err := rosterCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "Name,Email,Phone Number,Document,Position,Birth Date,Team,Status\n", string(body))
}

func TestExportMatchPlayersCSV(t *testing.T) {
	ts := newTestServer(t)
	_, games := closedWithGames(t, ts, 1)

	w := ts.do(t, http.MethodGet, fmt.Sprintf("/export/match/%d/players/csv", games[0].ID), ts.token(t, ts.player), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf("attachment; filename=match_%d_players.csv", games[0].ID), w.Header().Get("Content-Disposition"))

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Formiga", rows[1][0])
	assert.Equal(t, "home", rows[1][6])
	assert.Equal(t, "away", rows[2][6])

	t.Run("unknown match", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/export/match/999/players/csv", ts.token(t, ts.player), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "match not found", detailOf(t, w))
	})
	t.Run("bad id", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/export/match/x/players/csv", ts.token(t, ts.player), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
