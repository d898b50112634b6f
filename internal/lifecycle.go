package internal

import "time"

// FixtureLocations is the fixed venue rotation for generated games.
var FixtureLocations = [5]string{"Stadium A", "Stadium B", "Stadium C", "Stadium D", "Stadium E"}

const (
	firstFixtureOffset = 72 * time.Hour
	fixtureSpacing     = 24 * time.Hour
)

// Fixture is a game to be created when signups close.
type Fixture struct {
	ScheduledAt time.Time
	Location    string
	HomeUserID  int
	AwayUserID  int
}

// PlanFixtures pairs participants in order, two per game. An odd last
// participant stays unpaired. Game i is played at closedAt+3d+i days.
func PlanFixtures(participants []int, closedAt time.Time) []Fixture {
	n := len(participants) / 2
	out := make([]Fixture, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Fixture{
			ScheduledAt: closedAt.Add(firstFixtureOffset + time.Duration(i)*fixtureSpacing),
			Location:    FixtureLocations[i%len(FixtureLocations)],
			HomeUserID:  participants[2*i],
			AwayUserID:  participants[2*i+1],
		})
	}
	return out
}
