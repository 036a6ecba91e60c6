package leaderboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LeaderboardRepository defines what the app layer needs from the repository
type LeaderboardRepository interface {
	TopPlayers(ctx context.Context, limit int) ([]PlayerStanding, error)
	WinnersSince(ctx context.Context, since time.Time) ([]PlayerStanding, error)
	UserTotals(ctx context.Context, userID uuid.UUID) (int, int, error)
	CompletedSessions(ctx context.Context, from, to *time.Time) ([]Session, error)
}

// UserStats is one player's aggregate record over completed rounds.
type UserStats struct {
	TotalWins   int    `json:"totalWins"`
	TotalLosses int    `json:"totalLosses"`
	TotalGames  int    `json:"totalGames"`
	WinRate     string `json:"winRate"`
}

// App handles leaderboard business logic
type App struct {
	repo  LeaderboardRepository
	cache *Cache
}

// NewApp creates a new leaderboard App; cache may be nil.
func NewApp(repo LeaderboardRepository, cache *Cache) *App {
	return &App{repo: repo, cache: cache}
}

// TopPlayers returns the ranked standings, at most limit rows.
func (a *App) TopPlayers(ctx context.Context, limit int) ([]PlayerStanding, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	key := fmt.Sprintf("leaderboard:top:%d", limit)
	var cached []PlayerStanding
	if a.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	standings, err := a.repo.TopPlayers(ctx, limit)
	if err != nil {
		return nil, err
	}

	a.cacheSet(ctx, key, standings)
	return standings, nil
}

// PlayersByPeriod returns winners for "day", "week" or "month".
func (a *App) PlayersByPeriod(ctx context.Context, period string) ([]PlayerStanding, error) {
	since, err := periodStart(period, time.Now())
	if err != nil {
		return nil, err
	}

	key := "leaderboard:period:" + period
	var cached []PlayerStanding
	if a.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	standings, err := a.repo.WinnersSince(ctx, since)
	if err != nil {
		return nil, err
	}

	a.cacheSet(ctx, key, standings)
	return standings, nil
}

// UserStats returns one player's wins, losses and rounded win percentage.
func (a *App) UserStats(ctx context.Context, userID uuid.UUID) (UserStats, error) {
	wins, totalGames, err := a.repo.UserTotals(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}

	rate := 0
	if totalGames > 0 {
		rate = int(math.Round(float64(wins) / float64(totalGames) * 100))
	}
	return UserStats{
		TotalWins:   wins,
		TotalLosses: totalGames - wins,
		TotalGames:  totalGames,
		WinRate:     fmt.Sprintf("%d%%", rate),
	}, nil
}

// SessionsByDate lists completed rounds, newest first, optionally bounded by
// YYYY-MM-DD dates. The end date covers the whole day.
func (a *App) SessionsByDate(ctx context.Context, startDate, endDate string) ([]Session, error) {
	var from, to *time.Time
	if startDate != "" {
		day, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q", startDate)
		}
		from = &day
	}
	if endDate != "" {
		day, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q", endDate)
		}
		next := day.AddDate(0, 0, 1)
		to = &next
	}
	return a.repo.CompletedSessions(ctx, from, to)
}

func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "day":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case "week":
		start := now.AddDate(0, 0, -int(now.Weekday()))
		return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location()), nil
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period %q", period)
	}
}

func (a *App) cacheGet(ctx context.Context, key string, v *[]PlayerStanding) bool {
	if a.cache == nil {
		return false
	}
	hit, err := a.cache.Get(ctx, key, v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("leaderboard cache read failed")
		return false
	}
	return hit
}

func (a *App) cacheSet(ctx context.Context, key string, standings []PlayerStanding) {
	if a.cache == nil {
		return
	}
	a.cache.Set(ctx, key, standings)
}
