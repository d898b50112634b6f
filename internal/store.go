package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is everything the handlers need from persistence.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u NewUser) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)

	CreateChampionship(ctx context.Context, name string, numberPlayers int) (Championship, error)
	GetChampionship(ctx context.Context, id int) (Championship, error)
	ListChampionships(ctx context.Context, f ChampionshipFilter) ([]Championship, int, error)
	ListUserChampionships(ctx context.Context, userID int) ([]Championship, error)
	Enroll(ctx context.Context, championshipID, userID int) (Championship, error)
	CloseSignups(ctx context.Context, championshipID int, now time.Time) (Championship, []Game, bool, error)

	GetGame(ctx context.Context, id int) (Game, error)
	ListChampionshipGames(ctx context.Context, championshipID int, p Pagination) ([]Game, int, error)
	ListUserGames(ctx context.Context, userID int, status GameStatus, p Pagination) ([]Game, int, error)
	ScheduleGame(ctx context.Context, id int, at *time.Time, location *string) (Game, error)
	ScoreGame(ctx context.Context, id, home, away int) (Game, error)
	GameRoster(ctx context.Context, gameID int) ([]RosterEntry, error)

	LogAction(ctx context.Context, actorID *int, action, details string)
	ListLogs(ctx context.Context, limit int) ([]LogEntry, error)
}

type ChampionshipFilter struct {
	Closed *bool
	Name   string
	Pagination
}

type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) limit() uint64  { return uint64(p.PageSize) }
func (p Pagination) offset() uint64 { return uint64((p.Page - 1) * p.PageSize) }

const uniqueViolation = "23505"

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore { return &PgStore{db: db} }

func (s *PgStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

/* ===================== USERS ===================== */

var userColumns = []string{
	"id", "name", "email", "phone_number", "document", "birth_date", "admin", "position", "password_hash",
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		birth    *time.Time
		position *string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.Document, &birth, &u.Admin, &position, &u.PasswordHash)
	if err != nil {
		return User{}, err
	}
	if birth != nil {
		u.BirthDate = &Date{*birth}
	}
	if position != nil {
		p := Position(*position)
		u.Position = &p
	}
	return u, nil
}

func (s *PgStore) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	var birth *time.Time
	if nu.BirthDate != nil {
		birth = &nu.BirthDate.Time
	}
	var position *string
	if nu.Position != nil {
		p := string(*nu.Position)
		position = &p
	}

	q := psql.Insert("users").
		Columns("name", "email", "phone_number", "document", "birth_date", "admin", "position", "password_hash").
		Values(nu.Name, nu.Email, nu.PhoneNumber, nu.Document, birth, false, position, nu.PasswordHash).
		Suffix("RETURNING id")

	var id int
	if err := qRow(ctx, s.db, q).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_phone_number_key" {
				return User{}, conflict("phone number already registered")
			}
			return User{}, conflict("email already registered")
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return User{
		ID:           id,
		Name:         nu.Name,
		Email:        nu.Email,
		PhoneNumber:  nu.PhoneNumber,
		Document:     nu.Document,
		BirthDate:    nu.BirthDate,
		Position:     nu.Position,
		PasswordHash: nu.PasswordHash,
	}, nil
}

func (s *PgStore) UserByEmail(ctx context.Context, email string) (User, error) {
	q := psql.Select(userColumns...).From("users").Where(sq.Eq{"email": email})
	u, err := scanUser(qRow(ctx, s.db, q))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, notFound("user not found")
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

/* ===================== CHAMPIONSHIPS ===================== */

const enrolledCountExpr = "(SELECT count(*) FROM enrollments e WHERE e.championship_id = c.id)"

func championshipSelect() sq.SelectBuilder {
	return psql.Select("c.id", "c.name", "c.number_players", "c.is_closed", enrolledCountExpr).
		From("championships c")
}

func scanChampionship(row pgx.Row) (Championship, error) {
	var ch Championship
	err := row.Scan(&ch.ID, &ch.Name, &ch.NumberPlayers, &ch.IsClosed, &ch.EnrolledCount)
	return ch, err
}

func (s *PgStore) CreateChampionship(ctx context.Context, name string, numberPlayers int) (Championship, error) {
	q := psql.Insert("championships").
		Columns("name", "number_players").
		Values(name, numberPlayers).
		Suffix("RETURNING id")

	ch := Championship{Name: name, NumberPlayers: numberPlayers}
	if err := qRow(ctx, s.db, q).Scan(&ch.ID); err != nil {
		return Championship{}, fmt.Errorf("insert championship: %w", err)
	}
	return ch, nil
}

func (s *PgStore) GetChampionship(ctx context.Context, id int) (Championship, error) {
	ch, err := scanChampionship(qRow(ctx, s.db, championshipSelect().Where(sq.Eq{"c.id": id})))
	if errors.Is(err, pgx.ErrNoRows) {
		return Championship{}, notFound("championship not found")
	}
	if err != nil {
		return Championship{}, fmt.Errorf("select championship: %w", err)
	}
	return ch, nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *PgStore) ListChampionships(ctx context.Context, f ChampionshipFilter) ([]Championship, int, error) {
	var where sq.And
	if f.Closed != nil {
		where = append(where, sq.Eq{"c.is_closed": *f.Closed})
	}
	if f.Name != "" {
		where = append(where, sq.ILike{"c.name": "%" + likeEscaper.Replace(f.Name) + "%"})
	}

	countQ := psql.Select("count(*)").From("championships c")
	listQ := championshipSelect().OrderBy("c.id DESC").Limit(f.limit()).Offset(f.offset())
	if len(where) > 0 {
		countQ = countQ.Where(where)
		listQ = listQ.Where(where)
	}

	var total int
	if err := qRow(ctx, s.db, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count championships: %w", err)
	}
	out, err := s.queryChampionships(ctx, s.db, listQ)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PgStore) ListUserChampionships(ctx context.Context, userID int) ([]Championship, error) {
	q := championshipSelect().
		Join("enrollments me ON me.championship_id = c.id").
		Where(sq.Eq{"me.user_id": userID}).
		OrderBy("me.enrolled_at DESC")
	return s.queryChampionships(ctx, s.db, q)
}

func (s *PgStore) queryChampionships(ctx context.Context, db querier, q sq.SelectBuilder) ([]Championship, error) {
	rows, err := qQuery(ctx, db, q)
	if err != nil {
		return nil, fmt.Errorf("select championships: %w", err)
	}
	defer rows.Close()

	out := []Championship{}
	for rows.Next() {
		ch, err := scanChampionship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan championship: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// lockChampionship reads the championship row under FOR UPDATE so the
// caller's decision holds until commit.
func lockChampionship(ctx context.Context, tx pgx.Tx, id int) (Championship, error) {
	q := psql.Select("id", "name", "number_players", "is_closed").
		From("championships").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE")

	var ch Championship
	err := qRow(ctx, tx, q).Scan(&ch.ID, &ch.Name, &ch.NumberPlayers, &ch.IsClosed)
	if errors.Is(err, pgx.ErrNoRows) {
		return Championship{}, notFound("championship not found")
	}
	if err != nil {
		return Championship{}, fmt.Errorf("lock championship: %w", err)
	}
	return ch, nil
}

func enrolledCount(ctx context.Context, db querier, championshipID int) (int, error) {
	var n int
	q := psql.Select("count(*)").From("enrollments").Where(sq.Eq{"championship_id": championshipID})
	if err := qRow(ctx, db, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return n, nil
}

func (s *PgStore) Enroll(ctx context.Context, championshipID, userID int) (Championship, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Championship{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ch, err := lockChampionship(ctx, tx, championshipID)
	if err != nil {
		return Championship{}, err
	}
	if ch.IsClosed {
		return Championship{}, invalid("championship is closed")
	}

	tag, err := qExec(ctx, tx, psql.Insert("enrollments").
		Columns("user_id", "championship_id").
		Values(userID, championshipID).
		Suffix("ON CONFLICT DO NOTHING"))
	if err != nil {
		return Championship{}, fmt.Errorf("insert enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Championship{}, conflict("already enrolled in this championship")
	}

	if ch.EnrolledCount, err = enrolledCount(ctx, tx, championshipID); err != nil {
		return Championship{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Championship{}, fmt.Errorf("commit: %w", err)
	}
	return ch, nil
}

type participant struct {
	id   int
	name string
}

// CloseSignups closes enrollment and generates the fixtures in a single
// transaction. The bool result is true when the championship had already
// been closed and the existing games are returned untouched.
func (s *PgStore) CloseSignups(ctx context.Context, championshipID int, now time.Time) (Championship, []Game, bool, error) {
	// Postgres keeps microseconds; a repeat close must report the same dates.
	now = now.Truncate(time.Microsecond)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Championship{}, nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ch, err := lockChampionship(ctx, tx, championshipID)
	if err != nil {
		return Championship{}, nil, false, err
	}

	if ch.IsClosed {
		if ch.EnrolledCount, err = enrolledCount(ctx, tx, championshipID); err != nil {
			return Championship{}, nil, false, err
		}
		games, err := queryGames(ctx, tx, gameSelect().Where(sq.Eq{"m.championship_id": championshipID}).OrderBy("m.id"))
		if err != nil {
			return Championship{}, nil, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Championship{}, nil, false, fmt.Errorf("commit: %w", err)
		}
		return ch, games, true, nil
	}

	participants, err := enrolledParticipants(ctx, tx, championshipID)
	if err != nil {
		return Championship{}, nil, false, err
	}

	tag, err := qExec(ctx, tx, psql.Update("championships").
		Set("is_closed", true).
		Set("closed_at", now).
		Where(sq.Eq{"id": championshipID, "is_closed": false}))
	if err != nil {
		return Championship{}, nil, false, fmt.Errorf("close championship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Championship{}, nil, false, conflict("championship is already being closed")
	}

	ids := make([]int, len(participants))
	names := make(map[int]string, len(participants))
	for i, p := range participants {
		ids[i] = p.id
		names[p.id] = p.name
	}

	fixtures := PlanFixtures(ids, now)
	games := make([]Game, 0, len(fixtures))
	for _, f := range fixtures {
		var gameID int
		err := qRow(ctx, tx, psql.Insert("matches").
			Columns("championship_id", "round", "scheduled_at", "location", "status").
			Values(championshipID, 1, f.ScheduledAt, f.Location, string(StatusScheduled)).
			Suffix("RETURNING id")).Scan(&gameID)
		if err != nil {
			return Championship{}, nil, false, fmt.Errorf("insert game: %w", err)
		}

		_, err = qExec(ctx, tx, psql.Insert("match_players").
			Columns("match_id", "user_id", "team_side").
			Values(gameID, f.HomeUserID, "home").
			Values(gameID, f.AwayUserID, "away"))
		if err != nil {
			return Championship{}, nil, false, fmt.Errorf("insert game players: %w", err)
		}

		home, away := names[f.HomeUserID], names[f.AwayUserID]
		at := f.ScheduledAt
		games = append(games, Game{
			ID:             gameID,
			ChampionshipID: championshipID,
			Round:          1,
			HomeTeamName:   &home,
			AwayTeamName:   &away,
			Date:           &at,
			Location:       f.Location,
			Status:         StatusScheduled,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return Championship{}, nil, false, fmt.Errorf("commit: %w", err)
	}

	ch.IsClosed = true
	ch.EnrolledCount = len(participants)
	return ch, games, false, nil
}

func enrolledParticipants(ctx context.Context, tx pgx.Tx, championshipID int) ([]participant, error) {
	q := psql.Select("e.user_id", "u.name").
		From("enrollments e").
		Join("users u ON u.id = e.user_id").
		Where(sq.Eq{"e.championship_id": championshipID}).
		OrderBy("e.enrolled_at", "e.user_id")

	rows, err := qQuery(ctx, tx, q)
	if err != nil {
		return nil, fmt.Errorf("select enrollments: %w", err)
	}
	defer rows.Close()

	var out []participant
	for rows.Next() {
		var p participant
		if err := rows.Scan(&p.id, &p.name); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

/* ===================== GAMES ===================== */

func gameSelect() sq.SelectBuilder {
	return psql.Select(
		"m.id", "m.championship_id", "m.round", "hu.name", "au.name",
		"m.scheduled_at", "m.location", "m.home_score", "m.away_score", "m.status",
	).
		From("matches m").
		LeftJoin("match_players hp ON hp.match_id = m.id AND hp.team_side = 'home'").
		LeftJoin("users hu ON hu.id = hp.user_id").
		LeftJoin("match_players ap ON ap.match_id = m.id AND ap.team_side = 'away'").
		LeftJoin("users au ON au.id = ap.user_id")
}

func scanGame(row pgx.Row) (Game, error) {
	var (
		g      Game
		status string
	)
	err := row.Scan(&g.ID, &g.ChampionshipID, &g.Round, &g.HomeTeamName, &g.AwayTeamName,
		&g.Date, &g.Location, &g.HomeScore, &g.AwayScore, &status)
	g.Status = GameStatus(status)
	return g, err
}

func queryGames(ctx context.Context, db querier, q sq.SelectBuilder) ([]Game, error) {
	rows, err := qQuery(ctx, db, q)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	out := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func getGame(ctx context.Context, db querier, id int) (Game, error) {
	g, err := scanGame(qRow(ctx, db, gameSelect().Where(sq.Eq{"m.id": id})))
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, notFound("game not found")
	}
	if err != nil {
		return Game{}, fmt.Errorf("select game: %w", err)
	}
	return g, nil
}

func (s *PgStore) GetGame(ctx context.Context, id int) (Game, error) {
	return getGame(ctx, s.db, id)
}

func (s *PgStore) ListChampionshipGames(ctx context.Context, championshipID int, p Pagination) ([]Game, int, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM championships WHERE id=$1)", championshipID).Scan(&exists); err != nil {
		return nil, 0, fmt.Errorf("select championship: %w", err)
	}
	if !exists {
		return nil, 0, notFound("championship not found")
	}

	var total int
	countQ := psql.Select("count(*)").From("matches").Where(sq.Eq{"championship_id": championshipID})
	if err := qRow(ctx, s.db, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}
	games, err := queryGames(ctx, s.db, gameSelect().
		Where(sq.Eq{"m.championship_id": championshipID}).
		OrderBy("m.round", "m.scheduled_at NULLS LAST", "m.id").
		Limit(p.limit()).Offset(p.offset()))
	if err != nil {
		return nil, 0, err
	}
	return games, total, nil
}

func (s *PgStore) ListUserGames(ctx context.Context, userID int, status GameStatus, p Pagination) ([]Game, int, error) {
	where := sq.And{sq.Expr("EXISTS (SELECT 1 FROM match_players mp WHERE mp.match_id = m.id AND mp.user_id = ?)", userID)}
	if status != "" {
		where = append(where, sq.Eq{"m.status": string(status)})
	}

	var total int
	if err := qRow(ctx, s.db, psql.Select("count(*)").From("matches m").Where(where)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}
	order := "m.scheduled_at NULLS LAST"
	if status == StatusFinished {
		order = "m.scheduled_at DESC NULLS LAST"
	}
	games, err := queryGames(ctx, s.db, gameSelect().
		Where(where).
		OrderBy(order, "m.id").
		Limit(p.limit()).Offset(p.offset()))
	if err != nil {
		return nil, 0, err
	}
	return games, total, nil
}

func (s *PgStore) ScheduleGame(ctx context.Context, id int, at *time.Time, location *string) (Game, error) {
	set := map[string]any{}
	if at != nil {
		set["scheduled_at"] = *at
	}
	if location != nil {
		set["location"] = *location
	}
	if len(set) == 0 {
		return s.GetGame(ctx, id)
	}

	tag, err := qExec(ctx, s.db, psql.Update("matches").SetMap(set).Where(sq.Eq{"id": id}))
	if err != nil {
		return Game{}, fmt.Errorf("update game schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Game{}, notFound("game not found")
	}
	return s.GetGame(ctx, id)
}

// ScoreGame records the final score. A finished game is never re-scored.
func (s *PgStore) ScoreGame(ctx context.Context, id, home, away int) (Game, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Game{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = qRow(ctx, tx, psql.Select("status").From("matches").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, notFound("game not found")
	}
	if err != nil {
		return Game{}, fmt.Errorf("lock game: %w", err)
	}
	if GameStatus(status) == StatusFinished {
		return Game{}, conflict("game already finished")
	}

	_, err = qExec(ctx, tx, psql.Update("matches").
		Set("status", string(StatusFinished)).
		Set("home_score", home).
		Set("away_score", away).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return Game{}, fmt.Errorf("update game score: %w", err)
	}

	g, err := getGame(ctx, tx, id)
	if err != nil {
		return Game{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Game{}, fmt.Errorf("commit: %w", err)
	}
	return g, nil
}

func (s *PgStore) GameRoster(ctx context.Context, gameID int) ([]RosterEntry, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM matches WHERE id=$1)", gameID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}
	if !exists {
		return nil, notFound("match not found")
	}

	q := psql.Select("u.name", "u.email", "u.phone_number", "u.document", "u.position", "u.birth_date", "mp.team_side", "mp.confirmed").
		From("match_players mp").
		Join("users u ON u.id = mp.user_id").
		Where(sq.Eq{"mp.match_id": gameID}).
		OrderBy("mp.team_side DESC", "u.name")

	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("select roster: %w", err)
	}
	defer rows.Close()

	var out []RosterEntry
	for rows.Next() {
		var (
			r        RosterEntry
			position *string
			birth    *time.Time
		)
		if err := rows.Scan(&r.Name, &r.Email, &r.PhoneNumber, &r.Document, &position, &birth, &r.TeamSide, &r.Confirmed); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		if position != nil {
			p := Position(*position)
			r.Position = &p
		}
		if birth != nil {
			r.BirthDate = &Date{*birth}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

/* ===================== AUDIT ===================== */

func (s *PgStore) ListLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	q := psql.Select("l.id", "l.created_at", "COALESCE(u.email, '(deleted)')", "l.action", "l.details").
		From("audit_logs l").
		LeftJoin("users u ON u.id = l.actor_id").
		OrderBy("l.id DESC").
		Limit(uint64(limit))

	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("select logs: %w", err)
	}
	defer rows.Close()

	out := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Actor, &e.Action, &e.Details); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
