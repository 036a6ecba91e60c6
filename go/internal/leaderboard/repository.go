package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/lucky9/go/internal/sqlutil"
)

// PlayerStanding is one leaderboard row.
type PlayerStanding struct {
	UserID     uuid.UUID `json:"userId"`
	Username   string    `json:"username"`
	Wins       int       `json:"wins"`
	TotalGames int       `json:"totalGames"`
}

// Session is one completed round with the players who were actually in it.
type Session struct {
	RoundID       uuid.UUID            `json:"roundId"`
	WinningNumber *int                 `json:"winningNumber"`
	StartedAt     time.Time            `json:"startedAt"`
	Participants  []SessionParticipant `json:"participants"`
}

// SessionParticipant is one active player's line in a completed round.
type SessionParticipant struct {
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
	ChosenNumber *int      `json:"chosenNumber"`
	IsWinner     bool      `json:"isWinner"`
}

// Repository reads aggregates over completed rounds. It runs on its own pgx
// pool: these are heavier read-only scans, kept off the engine's connection
// pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a leaderboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TopPlayers lists players ranked by completed-round wins.
func (r *Repository) TopPlayers(ctx context.Context, limit int) ([]PlayerStanding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username,
		       COUNT(*) FILTER (WHERE p.is_winner) AS wins,
		       COUNT(*) AS total_games
		FROM users u
		JOIN participants p ON p.user_id = u.id
		JOIN rounds r ON r.id = p.round_id
		WHERE r.state = 'COMPLETED' AND NOT p.is_in_queue
		GROUP BY u.id, u.username
		ORDER BY wins DESC, total_games DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top players: %w", err)
	}
	defer rows.Close()

	return scanStandings(rows)
}

// WinnersSince lists players ranked by wins in rounds completed at or after
// the given instant.
func (r *Repository) WinnersSince(ctx context.Context, since time.Time) ([]PlayerStanding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username,
		       COUNT(*) FILTER (WHERE p.is_winner) AS wins,
		       COUNT(*) AS total_games
		FROM users u
		JOIN participants p ON p.user_id = u.id
		JOIN rounds r ON r.id = p.round_id
		WHERE r.state = 'COMPLETED' AND NOT p.is_in_queue AND r.created_at >= $1
		GROUP BY u.id, u.username
		HAVING COUNT(*) FILTER (WHERE p.is_winner) > 0
		ORDER BY wins DESC
		LIMIT 100`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	return scanStandings(rows)
}

// UserTotals counts one player's wins and completed games.
func (r *Repository) UserTotals(ctx context.Context, userID uuid.UUID) (int, int, error) {
	var wins, totalGames int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE p.is_winner),
		       COUNT(*)
		FROM participants p
		JOIN rounds r ON r.id = p.round_id
		WHERE r.state = 'COMPLETED' AND NOT p.is_in_queue AND p.user_id = $1`,
		userID,
	).Scan(&wins, &totalGames)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query user totals: %w", err)
	}
	return wins, totalGames, nil
}

// CompletedSessions lists completed rounds with their active players, newest
// first. from is inclusive, to is exclusive; either may be nil.
func (r *Repository) CompletedSessions(ctx context.Context, from, to *time.Time) ([]Session, error) {
	query := `
		SELECT r.id, r.winning_number, r.created_at,
		       p.user_id, u.username, p.chosen_number, p.is_winner
		FROM rounds r
		JOIN participants p ON p.round_id = r.id AND NOT p.is_in_queue
		JOIN users u ON u.id = p.user_id
		WHERE r.state = 'COMPLETED'`
	args := []any{}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND r.created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND r.created_at < $%d", len(args))
	}
	query += " ORDER BY r.created_at DESC, p.joined_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var roundID uuid.UUID
		var winning, chosen sql.NullInt32
		var startedAt time.Time
		var p SessionParticipant
		if err := rows.Scan(&roundID, &winning, &startedAt, &p.UserID, &p.Username, &chosen, &p.IsWinner); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		p.ChosenNumber = sqlutil.FromSqlInt32(chosen)

		// Rows arrive grouped by round, so a new id starts a new session.
		if len(sessions) == 0 || sessions[len(sessions)-1].RoundID != roundID {
			sessions = append(sessions, Session{
				RoundID:       roundID,
				WinningNumber: sqlutil.FromSqlInt32(winning),
				StartedAt:     startedAt,
			})
		}
		last := &sessions[len(sessions)-1]
		last.Participants = append(last.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStandings(rows pgxRows) ([]PlayerStanding, error) {
	var standings []PlayerStanding
	for rows.Next() {
		var s PlayerStanding
		if err := rows.Scan(&s.UserID, &s.Username, &s.Wins, &s.TotalGames); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read standings: %w", err)
	}
	return standings, nil
}
