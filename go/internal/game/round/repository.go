package round

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/lucky9/go/internal/models"
	"github.com/mcdev12/lucky9/go/internal/sqlutil"
)

// lobbyLockKey serializes every mutating round transaction via a Postgres
// advisory lock. One global lobby means one key.
const lobbyLockKey = int64(0x6C75636B7939)

const roundColumns = "id, state, winning_number, started_by, ends_at, created_at"
const participantColumns = "id, round_id, user_id, chosen_number, is_in_queue, is_winner, joined_at"

// Repository is the Postgres-backed round store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a round repository on the shared connection pool.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Atomically runs fn inside one transaction holding the lobby advisory lock,
// so every check-then-write sequence is linearizable with respect to all
// other mutations.
func (r *Repository) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	return storeErr(sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lobbyLockKey); err != nil {
			return fmt.Errorf("failed to acquire lobby lock: %w", err)
		}
		return fn(&txQueries{q: tx})
	}))
}

// storeErr classifies connection-level failures as ErrStoreUnavailable so
// callers can treat them as transient and retry.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func (r *Repository) OpenRound(ctx context.Context) (*models.Round, error) {
	round, err := openRound(ctx, r.db)
	return round, storeErr(err)
}

func (r *Repository) CountByRound(ctx context.Context, roundID uuid.UUID) (int, int, error) {
	active, queued, err := countByRound(ctx, r.db, roundID)
	return active, queued, storeErr(err)
}

func (r *Repository) OpenParticipantByUser(ctx context.Context, userID uuid.UUID) (*models.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.round_id, p.user_id, p.chosen_number, p.is_in_queue, p.is_winner, p.joined_at
		FROM participants p
		JOIN rounds r ON r.id = p.round_id
		WHERE r.state = $1 AND p.user_id = $2`,
		models.RoundStateOpen, userID,
	)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to get open participant: %w", err))
	}
	return p, nil
}

func (r *Repository) LatestCompletedForUser(ctx context.Context, userID uuid.UUID) (*UserResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT r.id, r.state, r.winning_number, r.started_by, r.ends_at, r.created_at,
		       p.id, p.round_id, p.user_id, p.chosen_number, p.is_in_queue, p.is_winner, p.joined_at
		FROM participants p
		JOIN rounds r ON r.id = p.round_id
		WHERE r.state = $1 AND p.user_id = $2 AND NOT p.is_in_queue
		ORDER BY r.ends_at DESC
		LIMIT 1`,
		models.RoundStateCompleted, userID,
	)

	var res UserResult
	var winning, chosen sql.NullInt32
	err := row.Scan(
		&res.Round.ID, &res.Round.State, &winning, &res.Round.StartedBy, &res.Round.EndsAt, &res.Round.CreatedAt,
		&res.Participant.ID, &res.Participant.RoundID, &res.Participant.UserID, &chosen,
		&res.Participant.IsInQueue, &res.Participant.IsWinner, &res.Participant.JoinedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to get latest completed round: %w", err))
	}
	res.Round.WinningNumber = sqlutil.FromSqlInt32(winning)
	res.Participant.ChosenNumber = sqlutil.FromSqlInt32(chosen)
	return &res, nil
}

// txQueries binds the Tx query set to one open transaction.
type txQueries struct {
	q querier
}

var _ Tx = (*txQueries)(nil)

func (t *txQueries) OpenRound(ctx context.Context) (*models.Round, error) {
	return openRound(ctx, t.q)
}

func (t *txQueries) RoundByID(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return r, nil
}

func (t *txQueries) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	row := t.q.QueryRowContext(ctx, `
		INSERT INTO rounds (id, state, started_by, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+roundColumns,
		req.ID, models.RoundStateOpen, req.StartedBy, req.EndsAt,
	)
	r, err := scanRound(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return r, nil
}

func (t *txQueries) DeleteRound(ctx context.Context, id uuid.UUID) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM rounds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRoundNotFound
	}
	return nil
}

func (t *txQueries) CompleteRound(ctx context.Context, id uuid.UUID, winningNumber int) (*models.Round, error) {
	row := t.q.QueryRowContext(ctx, `
		UPDATE rounds
		SET state = $2, winning_number = $3
		WHERE id = $1 AND state = $4
		RETURNING `+roundColumns,
		id, models.RoundStateCompleted, winningNumber, models.RoundStateOpen,
	)
	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete round: %w", err)
	}
	return r, nil
}

func (t *txQueries) CreateParticipant(ctx context.Context, req CreateParticipantRequest) (*models.Participant, error) {
	row := t.q.QueryRowContext(ctx, `
		INSERT INTO participants (id, round_id, user_id, is_in_queue)
		VALUES ($1, $2, $3, $4)
		RETURNING `+participantColumns,
		req.ID, req.RoundID, req.UserID, req.InQueue,
	)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	return p, nil
}

func (t *txQueries) ParticipantByUser(ctx context.Context, roundID, userID uuid.UUID) (*models.Participant, error) {
	row := t.q.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE round_id = $1 AND user_id = $2`,
		roundID, userID,
	)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (t *txQueries) ParticipantsWithUsers(ctx context.Context, roundID uuid.UUID) ([]ParticipantEntry, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT p.id, p.round_id, p.user_id, p.chosen_number, p.is_in_queue, p.is_winner, p.joined_at,
		       u.username
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.round_id = $1
		ORDER BY p.joined_at ASC`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var entries []ParticipantEntry
	for rows.Next() {
		var e ParticipantEntry
		var chosen sql.NullInt32
		if err := rows.Scan(
			&e.ID, &e.RoundID, &e.UserID, &chosen, &e.IsInQueue, &e.IsWinner, &e.JoinedAt,
			&e.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		e.ChosenNumber = sqlutil.FromSqlInt32(chosen)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return entries, nil
}

func (t *txQueries) CountActive(ctx context.Context, roundID uuid.UUID) (int, error) {
	var count int
	err := t.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM participants
		WHERE round_id = $1 AND NOT is_in_queue`,
		roundID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active participants: %w", err)
	}
	return count, nil
}

func (t *txQueries) DeleteParticipant(ctx context.Context, id uuid.UUID) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}

func (t *txQueries) EarliestQueued(ctx context.Context, roundID uuid.UUID) (*models.Participant, error) {
	row := t.q.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE round_id = $1 AND is_in_queue
		ORDER BY joined_at ASC
		LIMIT 1`,
		roundID,
	)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest queued participant: %w", err)
	}
	return p, nil
}

func (t *txQueries) PromoteParticipant(ctx context.Context, id uuid.UUID) error {
	if _, err := t.q.ExecContext(ctx, `
		UPDATE participants SET is_in_queue = FALSE WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to promote participant: %w", err)
	}
	return nil
}

func (t *txQueries) SetChosenNumber(ctx context.Context, id uuid.UUID, number int) (*models.Participant, error) {
	row := t.q.QueryRowContext(ctx, `
		UPDATE participants SET chosen_number = $2
		WHERE id = $1
		RETURNING `+participantColumns,
		id, number,
	)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, fmt.Errorf("failed to set chosen number: %w", err)
	}
	return p, nil
}

func (t *txQueries) MarkWinners(ctx context.Context, roundID uuid.UUID, winningNumber int) (int, error) {
	res, err := t.q.ExecContext(ctx, `
		UPDATE participants SET is_winner = TRUE
		WHERE round_id = $1 AND chosen_number = $2 AND NOT is_in_queue`,
		roundID, winningNumber,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark winners: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked winners: %w", err)
	}
	return int(n), nil
}

func openRound(ctx context.Context, q querier) (*models.Round, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+roundColumns+` FROM rounds WHERE state = $1 LIMIT 1`,
		models.RoundStateOpen,
	)
	r, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open round: %w", err)
	}
	return r, nil
}

func countByRound(ctx context.Context, q querier, roundID uuid.UUID) (int, int, error) {
	var active, queued int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE NOT is_in_queue),
		       COUNT(*) FILTER (WHERE is_in_queue)
		FROM participants
		WHERE round_id = $1`,
		roundID,
	).Scan(&active, &queued)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return active, queued, nil
}

func scanRound(row *sql.Row) (*models.Round, error) {
	var r models.Round
	var winning sql.NullInt32
	if err := row.Scan(&r.ID, &r.State, &winning, &r.StartedBy, &r.EndsAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.WinningNumber = sqlutil.FromSqlInt32(winning)
	return &r, nil
}

func scanParticipant(row *sql.Row) (*models.Participant, error) {
	var p models.Participant
	var chosen sql.NullInt32
	if err := row.Scan(&p.ID, &p.RoundID, &p.UserID, &chosen, &p.IsInQueue, &p.IsWinner, &p.JoinedAt); err != nil {
		return nil, err
	}
	p.ChosenNumber = sqlutil.FromSqlInt32(chosen)
	return &p, nil
}
