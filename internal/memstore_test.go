package internal

import (
	"context"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store used by the handler tests.
type memStore struct {
	mu sync.Mutex

	users         []User
	championships map[int]*Championship
	enrollments   map[int][]int // championship id -> user ids in enrollment order
	games         map[int]*Game
	players       map[int][]memPlayer // game id -> players
	logs          []LogEntry
	nextID        int
}

type memPlayer struct {
	userID int
	side   string
}

func newMemStore() *memStore {
	return &memStore{
		championships: map[int]*Championship{},
		enrollments:   map[int][]int{},
		games:         map[int]*Game{},
		players:       map[int][]memPlayer{},
	}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateUser(_ context.Context, nu NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return User{}, conflict("email already registered")
		}
	}
	u := User{
		ID: m.id(), Name: nu.Name, Email: nu.Email, PhoneNumber: nu.PhoneNumber, Document: nu.Document,
		BirthDate: nu.BirthDate, Position: nu.Position, PasswordHash: nu.PasswordHash,
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memStore) addUser(name, email string, admin bool) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := User{ID: m.id(), Name: name, Email: email, Admin: admin}
	m.users = append(m.users, u)
	return u
}

func (m *memStore) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, notFound("user not found")
}

func (m *memStore) userName(id int) string {
	for _, u := range m.users {
		if u.ID == id {
			return u.Name
		}
	}
	return ""
}

func (m *memStore) CreateChampionship(_ context.Context, name string, n int) (Championship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := &Championship{ID: m.id(), Name: name, NumberPlayers: n}
	m.championships[ch.ID] = ch
	return *ch, nil
}

func (m *memStore) snapshot(ch *Championship) Championship {
	out := *ch
	out.EnrolledCount = len(m.enrollments[ch.ID])
	return out
}

func (m *memStore) GetChampionship(_ context.Context, id int) (Championship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.championships[id]
	if !ok {
		return Championship{}, notFound("championship not found")
	}
	return m.snapshot(ch), nil
}

func (m *memStore) ListChampionships(_ context.Context, f ChampionshipFilter) ([]Championship, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Championship
	for _, ch := range m.championships {
		if f.Closed != nil && ch.IsClosed != *f.Closed {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(ch.Name), strings.ToLower(f.Name)) {
			continue
		}
		all = append(all, m.snapshot(ch))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return pageOf(all, f.Pagination), len(all), nil
}

func pageOf[T any](all []T, p Pagination) []T {
	start := int(p.offset())
	if start >= len(all) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (m *memStore) ListUserChampionships(_ context.Context, userID int) ([]Championship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Championship{}
	for id, users := range m.enrollments {
		for _, u := range users {
			if u == userID {
				out = append(out, m.snapshot(m.championships[id]))
			}
		}
	}
	return out, nil
}

func (m *memStore) Enroll(_ context.Context, championshipID, userID int) (Championship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.championships[championshipID]
	if !ok {
		return Championship{}, notFound("championship not found")
	}
	if ch.IsClosed {
		return Championship{}, invalid("championship is closed")
	}
	for _, u := range m.enrollments[championshipID] {
		if u == userID {
			return Championship{}, conflict("already enrolled in this championship")
		}
	}
	m.enrollments[championshipID] = append(m.enrollments[championshipID], userID)
	return m.snapshot(ch), nil
}

func (m *memStore) CloseSignups(_ context.Context, id int, now time.Time) (Championship, []Game, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.championships[id]
	if !ok {
		return Championship{}, nil, false, notFound("championship not found")
	}
	if ch.IsClosed {
		return m.snapshot(ch), m.gamesOf(id), true, nil
	}
	ch.IsClosed = true
	created := []Game{}
	for _, f := range PlanFixtures(m.enrollments[id], now) {
		at := f.ScheduledAt
		home, away := m.userName(f.HomeUserID), m.userName(f.AwayUserID)
		g := &Game{
			ID: m.id(), ChampionshipID: id, Round: 1, HomeTeamName: &home, AwayTeamName: &away,
			Date: &at, Location: f.Location, Status: StatusScheduled,
		}
		m.games[g.ID] = g
		m.players[g.ID] = []memPlayer{{f.HomeUserID, "home"}, {f.AwayUserID, "away"}}
		created = append(created, *g)
	}
	return m.snapshot(ch), created, false, nil
}

func (m *memStore) gamesOf(championshipID int) []Game {
	out := []Game{}
	for _, g := range m.games {
		if g.ChampionshipID == championshipID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) GetGame(_ context.Context, id int) (Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, notFound("game not found")
	}
	return *g, nil
}

func (m *memStore) ListChampionshipGames(_ context.Context, id int, p Pagination) ([]Game, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.championships[id]; !ok {
		return nil, 0, notFound("championship not found")
	}
	all := m.gamesOf(id)
	return pageOf(all, p), len(all), nil
}

func (m *memStore) ListUserGames(_ context.Context, userID int, status GameStatus, p Pagination) ([]Game, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []Game{}
	for gid, ps := range m.players {
		for _, pl := range ps {
			g := m.games[gid]
			if pl.userID == userID && (status == "" || g.Status == status) {
				all = append(all, *g)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageOf(all, p), len(all), nil
}

func (m *memStore) ScheduleGame(_ context.Context, id int, at *time.Time, location *string) (Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, notFound("game not found")
	}
	if at != nil {
		g.Date = at
	}
	if location != nil {
		g.Location = *location
	}
	return *g, nil
}

func (m *memStore) ScoreGame(_ context.Context, id, home, away int) (Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return Game{}, notFound("game not found")
	}
	if g.Status == StatusFinished {
		return Game{}, conflict("game already finished")
	}
	g.Status = StatusFinished
	g.HomeScore, g.AwayScore = &home, &away
	return *g, nil
}

func (m *memStore) GameRoster(_ context.Context, gameID int) ([]RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return nil, notFound("match not found")
	}
	var out []RosterEntry
	for _, p := range m.players[gameID] {
		for _, u := range m.users {
			if u.ID == p.userID {
				out = append(out, RosterEntry{Name: u.Name, Email: u.Email, PhoneNumber: u.PhoneNumber, TeamSide: p.side})
			}
		}
	}
	return out, nil
}

func (m *memStore) LogAction(_ context.Context, _ *int, action, details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, LogEntry{ID: int64(len(m.logs) + 1), Action: action, Details: details})
}

func (m *memStore) ListLogs(_ context.Context, limit int) ([]LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.logs) > limit {
		return m.logs[len(m.logs)-limit:], nil
	}
	return m.logs, nil
}

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

/* ===================== TEST SERVER ===================== */

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	store  *memStore
	codec  *TokenCodec
	admin  User
	player User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	st := newMemStore()
	codec := NewTokenCodec([]byte("test-secret"), time.Hour)

	ts := &testServer{store: st, codec: codec}
	ts.admin = st.addUser("Marta", "admin@league.test", true)
	ts.player = st.addUser("Formiga", "player@league.test", false)

	cfg := Config{
		BcryptCost: 4,
		Gateway:    GatewayRules{Excluded: defaultExcludedPrefixes, Protected: defaultProtectedPrefixes},
	}
	ts.router = NewRouter(Deps{
		Config:  cfg,
		Store:   st,
		Codec:   codec,
		Metrics: NewMetrics(),
		Log:     log,
		Now:     func() time.Time { return testNow },
	})
	return ts
}

func (ts *testServer) token(t *testing.T, u User) string {
	t.Helper()
	tok, err := ts.codec.Issue(u.Email)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
