package internal

import "time"

type Position string

const (
	Goalkeeper Position = "goalkeeper"
	Defender   Position = "defender"
	Midfielder Position = "midfielder"
	Forward    Position = "forward"
)

type GameStatus string

const (
	StatusScheduled  GameStatus = "scheduled"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
	StatusCanceled   GameStatus = "canceled"
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PhoneNumber  *string   `json:"phone_number"`
	Document     *string   `json:"document"`
	BirthDate    *Date     `json:"birth_date"`
	Admin        bool      `json:"admin"`
	Position     *Position `json:"position"`
	PasswordHash string    `json:"-"`
}

func (u User) Role() string {
	if u.Admin {
		return "admin"
	}
	return "user"
}

type NewUser struct {
	Name         string
	Email        string
	PhoneNumber  *string
	Document     *string
	BirthDate    *Date
	Position     *Position
	PasswordHash string
}

type TokenOut struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

type Championship struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	NumberPlayers int    `json:"number_players"`
	IsClosed      bool   `json:"is_closed"`
	EnrolledCount int    `json:"enrolled_count"`
}

type Game struct {
	ID             int        `json:"id"`
	ChampionshipID int        `json:"championship_id"`
	Round          int        `json:"round"`
	HomeTeamName   *string    `json:"home_team_name"`
	AwayTeamName   *string    `json:"away_team_name"`
	Date           *time.Time `json:"date"`
	Location       string     `json:"location"`
	HomeScore      *int       `json:"home_score"`
	AwayScore      *int       `json:"away_score"`
	Status         GameStatus `json:"status"`
}

type CloseSignupsOut struct {
	Championship Championship `json:"championship"`
	Games        []Game       `json:"games"`
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// RosterEntry is one exported line of a match roster.
type RosterEntry struct {
	Name        string
	Email       string
	PhoneNumber *string
	Document    *string
	Position    *Position
	BirthDate   *Date
	TeamSide    string
	Confirmed   bool
}

type LogEntry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct{ time.Time }

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return invalid("birth_date must be a YYYY-MM-DD string")
	}
	t, err := time.Parse(dateLayout, s[1:len(s)-1])
	if err != nil {
		return invalid("birth_date must be a YYYY-MM-DD string")
	}
	d.Time = t
	return nil
}
