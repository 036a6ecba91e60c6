package round

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/lucky9/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Tx exposes the store queries available inside one atomic unit. Lookup
// methods for states that are legitimately absent (no open round, no
// membership, empty queue) return (nil, nil); RoundByID returns
// ErrRoundNotFound so completion stays idempotent.
type Tx interface {
	OpenRound(ctx context.Context) (*models.Round, error)
	RoundByID(ctx context.Context, id uuid.UUID) (*models.Round, error)
	CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error)
	DeleteRound(ctx context.Context, id uuid.UUID) error
	CompleteRound(ctx context.Context, id uuid.UUID, winningNumber int) (*models.Round, error)

	CreateParticipant(ctx context.Context, req CreateParticipantRequest) (*models.Participant, error)
	ParticipantByUser(ctx context.Context, roundID, userID uuid.UUID) (*models.Participant, error)
	ParticipantsWithUsers(ctx context.Context, roundID uuid.UUID) ([]ParticipantEntry, error)
	CountActive(ctx context.Context, roundID uuid.UUID) (int, error)
	DeleteParticipant(ctx context.Context, id uuid.UUID) error
	EarliestQueued(ctx context.Context, roundID uuid.UUID) (*models.Participant, error)
	PromoteParticipant(ctx context.Context, id uuid.UUID) error
	SetChosenNumber(ctx context.Context, id uuid.UUID, number int) (*models.Participant, error)
	MarkWinners(ctx context.Context, roundID uuid.UUID, winningNumber int) (int, error)
}

// Store defines what the round manager needs from persistence. Atomically
// runs fn as a single linearizable unit with respect to every other
// Atomically call; the remaining methods are plain reads.
type Store interface {
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	OpenRound(ctx context.Context) (*models.Round, error)
	CountByRound(ctx context.Context, roundID uuid.UUID) (active, queued int, err error)
	OpenParticipantByUser(ctx context.Context, userID uuid.UUID) (*models.Participant, error)
	LatestCompletedForUser(ctx context.Context, userID uuid.UUID) (*UserResult, error)
}

// Manager owns the round state machine and all of its invariants.
type Manager struct {
	store Store
	cfg   Config
	clock clockwork.Clock
	draw  func() int
}

// NewManager creates a round manager with a real clock and a uniform draw.
func NewManager(store Store, cfg Config) *Manager {
	return &Manager{
		store: store,
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
		draw:  func() int { return rand.IntN(9) + 1 },
	}
}

// WithClock swaps the clock; used by tests with a clockwork.FakeClock.
func (m *Manager) WithClock(clock clockwork.Clock) *Manager {
	m.clock = clock
	return m
}

// WithDraw swaps the winning-number draw; used by tests.
func (m *Manager) WithDraw(draw func() int) *Manager {
	m.draw = draw
	return m
}

// Join adds the user to the current open round, creating the round if none
// exists. Re-joining is idempotent: an existing membership is returned
// unchanged. A stale round past its deadline rejects joins with
// ErrRoundEnded rather than silently extending.
func (m *Manager) Join(ctx context.Context, userID uuid.UUID) (*models.Participant, error) {
	var joined *models.Participant
	err := m.store.Atomically(ctx, func(tx Tx) error {
		open, err := tx.OpenRound(ctx)
		if err != nil {
			return err
		}

		now := m.clock.Now()
		if open == nil {
			created, err := tx.CreateRound(ctx, CreateRoundRequest{
				ID:        uuid.New(),
				StartedBy: userID,
				EndsAt:    now.Add(m.cfg.Duration),
			})
			if err != nil {
				return err
			}
			log.Info().
				Str("round_id", created.ID.String()).
				Str("started_by", userID.String()).
				Time("ends_at", created.EndsAt).
				Msg("created new round")

			joined, err = tx.CreateParticipant(ctx, CreateParticipantRequest{
				ID:      uuid.New(),
				RoundID: created.ID,
				UserID:  userID,
			})
			return err
		}

		existing, err := tx.ParticipantByUser(ctx, open.ID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			joined = existing
			return nil
		}

		if open.Ended(now) {
			return ErrRoundEnded
		}

		active, err := tx.CountActive(ctx, open.ID)
		if err != nil {
			return err
		}
		if active >= m.cfg.MaxPlayers {
			return ErrRoundFull
		}

		joined, err = tx.CreateParticipant(ctx, CreateParticipantRequest{
			ID:      uuid.New(),
			RoundID: open.ID,
			UserID:  userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Leave removes the caller's membership from the current open round and
// promotes the earliest queued participant, if any. The queue lookup runs
// after the deletion so a participant that just left is never promoted.
func (m *Manager) Leave(ctx context.Context, userID uuid.UUID) error {
	return m.store.Atomically(ctx, func(tx Tx) error {
		open, err := tx.OpenRound(ctx)
		if err != nil {
			return err
		}
		if open == nil {
			return ErrNoActiveRound
		}

		p, err := tx.ParticipantByUser(ctx, open.ID, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNoActiveRound
		}

		if err := tx.DeleteParticipant(ctx, p.ID); err != nil {
			return err
		}

		next, err := tx.EarliestQueued(ctx, open.ID)
		if err != nil {
			return err
		}
		if next != nil {
			if err := tx.PromoteParticipant(ctx, next.ID); err != nil {
				return err
			}
			log.Info().
				Str("round_id", open.ID.String()).
				Str("participant_id", next.ID.String()).
				Msg("promoted queued participant")
		}
		return nil
	})
}

// ChooseNumber records the caller's pick for the current open round.
// Repeated calls overwrite the prior choice.
func (m *Manager) ChooseNumber(ctx context.Context, userID uuid.UUID, number int) (*models.Participant, error) {
	if number < 1 || number > 9 {
		return nil, ErrNumberOutOfRange
	}

	var chosen *models.Participant
	err := m.store.Atomically(ctx, func(tx Tx) error {
		open, err := tx.OpenRound(ctx)
		if err != nil {
			return err
		}
		if open == nil {
			return ErrNoActiveRound
		}

		p, err := tx.ParticipantByUser(ctx, open.ID, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNoActiveRound
		}
		if p.IsInQueue {
			return ErrQueuedCannotChoose
		}

		chosen, err = tx.SetChosenNumber(ctx, p.ID, number)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chosen, nil
}

// Complete scores the round: with no active participants the round is
// deleted and (nil, nil) is returned; otherwise a winning number is drawn,
// matching active participants are flagged winners in one update pass and
// the full result is returned. A second call against the same id fails with
// ErrRoundNotFound and never re-draws.
func (m *Manager) Complete(ctx context.Context, roundID uuid.UUID) (*RoundResult, error) {
	var result *RoundResult
	err := m.store.Atomically(ctx, func(tx Tx) error {
		r, err := tx.RoundByID(ctx, roundID)
		if err != nil {
			return err
		}
		if r.State != models.RoundStateOpen {
			return ErrRoundNotFound
		}

		entries, err := tx.ParticipantsWithUsers(ctx, r.ID)
		if err != nil {
			return err
		}

		var active []ParticipantEntry
		for _, e := range entries {
			if e.Active() {
				active = append(active, e)
			}
		}

		if len(active) == 0 {
			log.Info().Str("round_id", r.ID.String()).Msg("discarding round with no active participants")
			return tx.DeleteRound(ctx, r.ID)
		}

		winning := m.draw()
		if _, err := tx.CompleteRound(ctx, r.ID, winning); err != nil {
			return err
		}
		marked, err := tx.MarkWinners(ctx, r.ID, winning)
		if err != nil {
			return err
		}

		var winners []ParticipantEntry
		for i := range active {
			if active[i].ChosenNumber != nil && *active[i].ChosenNumber == winning {
				active[i].IsWinner = true
				winners = append(winners, active[i])
			}
		}

		log.Info().
			Str("round_id", r.ID.String()).
			Int("winning_number", winning).
			Int("total_players", len(active)).
			Int("total_winners", marked).
			Msg("round completed")

		result = &RoundResult{
			RoundID:       r.ID,
			WinningNumber: winning,
			Participants:  active,
			Winners:       winners,
			TotalPlayers:  len(active),
			TotalWinners:  len(winners),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetStatus returns the current snapshot without mutating anything.
func (m *Manager) GetStatus(ctx context.Context) (*StatusSnapshot, error) {
	open, err := m.store.OpenRound(ctx)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return &StatusSnapshot{}, nil
	}

	active, queued, err := m.store.CountByRound(ctx, open.ID)
	if err != nil {
		return nil, err
	}

	left := int(open.EndsAt.Sub(m.clock.Now()) / time.Second)
	if left < 0 {
		left = 0
	}

	return &StatusSnapshot{
		HasActiveRound:   true,
		TimeLeft:         left,
		ParticipantCount: active,
		QueueCount:       queued,
		Round:            open,
	}, nil
}

// UserRound returns the caller's membership in the current open round.
func (m *Manager) UserRound(ctx context.Context, userID uuid.UUID) (*models.Participant, error) {
	p, err := m.store.OpenParticipantByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoActiveRound
	}
	return p, nil
}

// LatestResult returns the most recent completed round the caller played in.
func (m *Manager) LatestResult(ctx context.Context, userID uuid.UUID) (*UserResult, error) {
	res, err := m.store.LatestCompletedForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrRoundNotFound
	}
	return res, nil
}
