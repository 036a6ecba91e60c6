package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeaderboardRepo struct {
	standings []PlayerStanding
	sessions  []Session
	wins      int
	games     int
	calls     int

	gotFrom *time.Time
	gotTo   *time.Time
}

func (f *fakeLeaderboardRepo) TopPlayers(ctx context.Context, limit int) ([]PlayerStanding, error) {
	f.calls++
	if limit < len(f.standings) {
		return f.standings[:limit], nil
	}
	return f.standings, nil
}

func (f *fakeLeaderboardRepo) WinnersSince(ctx context.Context, since time.Time) ([]PlayerStanding, error) {
	f.calls++
	return f.standings, nil
}

func (f *fakeLeaderboardRepo) UserTotals(ctx context.Context, userID uuid.UUID) (int, int, error) {
	f.calls++
	return f.wins, f.games, nil
}

func (f *fakeLeaderboardRepo) CompletedSessions(ctx context.Context, from, to *time.Time) ([]Session, error) {
	f.calls++
	f.gotFrom, f.gotTo = from, to
	return f.sessions, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, 30*time.Second)
}

func TestTopPlayersServesFromCacheOnRepeat(t *testing.T) {
	repo := &fakeLeaderboardRepo{standings: []PlayerStanding{
		{UserID: uuid.New(), Username: "alice", Wins: 7, TotalGames: 12},
		{UserID: uuid.New(), Username: "bob", Wins: 4, TotalGames: 9},
	}}
	app := NewApp(repo, newTestCache(t))

	first, err := app.TopPlayers(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, repo.calls)

	second, err := app.TopPlayers(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls, "second read should hit the cache")
}

func TestTopPlayersNormalizesLimit(t *testing.T) {
	repo := &fakeLeaderboardRepo{standings: make([]PlayerStanding, 20)}
	app := NewApp(repo, nil)

	standings, err := app.TopPlayers(context.Background(), -1)
	require.NoError(t, err)
	assert.Len(t, standings, 10)

	standings, err = app.TopPlayers(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, standings, 10)
}

func TestTopPlayersWorksWithoutCache(t *testing.T) {
	repo := &fakeLeaderboardRepo{standings: []PlayerStanding{
		{UserID: uuid.New(), Username: "alice", Wins: 1, TotalGames: 1},
	}}
	app := NewApp(repo, nil)

	standings, err := app.TopPlayers(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, standings, 1)
}

func TestPlayersByPeriodRejectsUnknownPeriod(t *testing.T) {
	app := NewApp(&fakeLeaderboardRepo{}, nil)

	_, err := app.PlayersByPeriod(context.Background(), "year")
	assert.Error(t, err)
}

func TestPeriodStart(t *testing.T) {
	// A Wednesday.
	now := time.Date(2025, time.June, 18, 15, 30, 0, 0, time.UTC)

	day, err := periodStart("day", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 18, 0, 0, 0, 0, time.UTC), day)

	week, err := periodStart("week", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC), week)

	month, err := periodStart("month", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), month)
}

func TestCacheGetMiss(t *testing.T) {
	cache := newTestCache(t)

	var v []PlayerStanding
	hit, err := cache.Get(context.Background(), "leaderboard:top:10", &v)
	require.NoError(t, err)
	assert.False(t, hit)

	cache.Set(context.Background(), "leaderboard:top:10", []PlayerStanding{{Username: "alice"}})
	hit, err = cache.Get(context.Background(), "leaderboard:top:10", &v)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, v, 1)
	assert.Equal(t, "alice", v[0].Username)
}

func TestUserStatsComputesWinRate(t *testing.T) {
	repo := &fakeLeaderboardRepo{wins: 2, games: 3}
	app := NewApp(repo, nil)

	stats, err := app.UserStats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalWins)
	assert.Equal(t, 1, stats.TotalLosses)
	assert.Equal(t, 3, stats.TotalGames)
	assert.Equal(t, "67%", stats.WinRate)
}

func TestUserStatsWithNoGames(t *testing.T) {
	app := NewApp(&fakeLeaderboardRepo{}, nil)

	stats, err := app.UserStats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalGames)
	assert.Equal(t, "0%", stats.WinRate)
}

func TestSessionsByDateParsesRange(t *testing.T) {
	repo := &fakeLeaderboardRepo{sessions: []Session{{RoundID: uuid.New()}}}
	app := NewApp(repo, nil)

	sessions, err := app.SessionsByDate(context.Background(), "2025-06-01", "2025-06-18")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NotNil(t, repo.gotFrom)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), *repo.gotFrom)
	// The end date is inclusive: the bound is the start of the next day.
	require.NotNil(t, repo.gotTo)
	assert.Equal(t, time.Date(2025, time.June, 19, 0, 0, 0, 0, time.UTC), *repo.gotTo)
}

func TestSessionsByDateWithoutBounds(t *testing.T) {
	repo := &fakeLeaderboardRepo{}
	app := NewApp(repo, nil)

	_, err := app.SessionsByDate(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, repo.gotFrom)
	assert.Nil(t, repo.gotTo)
}

func TestSessionsByDateRejectsMalformedDate(t *testing.T) {
	app := NewApp(&fakeLeaderboardRepo{}, nil)

	_, err := app.SessionsByDate(context.Background(), "June 1", "")
	assert.Error(t, err)

	_, err = app.SessionsByDate(context.Background(), "", "18-06-2025")
	assert.Error(t, err)
}
