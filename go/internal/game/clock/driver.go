package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/lucky9/go/internal/game/events"
	"github.com/mcdev12/lucky9/go/internal/game/notify"
	"github.com/mcdev12/lucky9/go/internal/game/round"
	"github.com/rs/zerolog/log"
)

// RoundManager defines what the driver needs from the round engine.
type RoundManager interface {
	GetStatus(ctx context.Context) (*round.StatusSnapshot, error)
	Complete(ctx context.Context, roundID uuid.UUID) (*round.RoundResult, error)
}

// Config holds the driver cadence settings.
type Config struct {
	TickInterval time.Duration
	Cooldown     time.Duration
	IdleTicks    int
}

// DefaultConfig returns the reference cadence: 1s ticks, 10s result
// cool-down, suspend after 10 consecutive idle ticks.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		Cooldown:     10 * time.Second,
		IdleTicks:    10,
	}
}

// Driver is the periodic process that advances round time. It is a two-state
// machine, Running or Suspended: it suspends itself when the lobby stays
// empty or a tick errors, and Resume restarts it. Only one ticking loop is
// ever active.
type Driver struct {
	manager  RoundManager
	notifier notify.Notifier
	clock    clockwork.Clock
	cfg      Config

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	running bool
}

// NewDriver creates a suspended driver with a real clock.
func NewDriver(manager RoundManager, notifier notify.Notifier, cfg Config) *Driver {
	return &Driver{
		manager:  manager,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		cfg:      cfg,
	}
}

// WithClock swaps the clock; used by tests with a clockwork.FakeClock.
func (d *Driver) WithClock(clock clockwork.Clock) *Driver {
	d.clock = clock
	return d
}

// Start binds the driver to its lifetime context and begins ticking.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()
	d.Resume()
}

// Resume restarts ticking if the driver is suspended. It is a no-op while a
// loop is already running, so any number of connecting clients may call it.
func (d *Driver) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.baseCtx == nil || d.baseCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(d.baseCtx)
	d.running = true
	d.cancel = cancel
	go d.run(ctx)
}

// Stop cancels the current ticking loop, if any.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Running reports whether a ticking loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) run(ctx context.Context) {
	defer d.suspend()

	log.Info().Dur("tick", d.cfg.TickInterval).Msg("driver resumed")

	ticker := d.clock.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	idle := 0
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("driver stopped")
			return
		case <-ticker.Chan():
		}

		stop, err := d.tick(ctx, &idle)
		if err != nil {
			log.Error().Err(err).Msg("tick failed, suspending driver")
			return
		}
		if stop {
			log.Info().Int("idle_ticks", idle).Msg("lobby idle, suspending driver")
			return
		}
	}
}

func (d *Driver) suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.running = false
}

// tick runs one driver cycle. It returns stop=true when the idle threshold
// is reached, and an error only for failures that should suspend the driver.
func (d *Driver) tick(ctx context.Context, idle *int) (stop bool, err error) {
	status, err := d.manager.GetStatus(ctx)
	if err != nil {
		return false, err
	}

	if !status.HasActiveRound {
		if err := d.notifier.PublishStatus(ctx, StatusPayload(status)); err != nil {
			return false, err
		}
		*idle++
		return *idle >= d.cfg.IdleTicks, nil
	}
	*idle = 0

	if status.TimeLeft > 0 {
		return false, d.notifier.PublishStatus(ctx, StatusPayload(status))
	}

	// Deadline passed: complete before publishing anything further, so no
	// observer ever sees a stale "still running" status.
	result, err := d.manager.Complete(ctx, status.Round.ID)
	if err != nil && !errors.Is(err, round.ErrRoundNotFound) {
		return false, err
	}

	if result == nil {
		// Discarded, or another initiator won the completion race.
		return false, d.publishFreshStatus(ctx)
	}

	if err := d.notifier.PublishResult(ctx, ResultPayload(result)); err != nil {
		return false, err
	}

	// Cool-down before the next status publish. Rounds are only created by
	// an explicit Join, so nothing starts implicitly while we wait.
	timer := d.clock.NewTimer(d.cfg.Cooldown)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true, nil
	case <-timer.Chan():
	}

	return false, d.publishFreshStatus(ctx)
}

func (d *Driver) publishFreshStatus(ctx context.Context) error {
	fresh, err := d.manager.GetStatus(ctx)
	if err != nil {
		return err
	}
	return d.notifier.PublishStatus(ctx, StatusPayload(fresh))
}

// StatusPayload converts a snapshot into its wire payload.
func StatusPayload(s *round.StatusSnapshot) events.StatusPayload {
	p := events.StatusPayload{
		HasActiveRound:   s.HasActiveRound,
		TimeLeft:         s.TimeLeft,
		ParticipantCount: s.ParticipantCount,
		QueueCount:       s.QueueCount,
	}
	if s.Round != nil {
		id := s.Round.ID
		p.RoundID = &id
	}
	return p
}

// ResultPayload converts a completion result into its wire payload.
func ResultPayload(r *round.RoundResult) events.ResultPayload {
	p := events.ResultPayload{
		RoundID:       r.RoundID,
		WinningNumber: r.WinningNumber,
		Participants:  make([]events.ResultParticipant, 0, len(r.Participants)),
		Winners:       make([]events.ResultWinner, 0, len(r.Winners)),
		TotalPlayers:  r.TotalPlayers,
		TotalWinners:  r.TotalWinners,
	}
	for _, e := range r.Participants {
		p.Participants = append(p.Participants, events.ResultParticipant{
			Username:     e.Username,
			ChosenNumber: e.ChosenNumber,
			IsWinner:     e.IsWinner,
		})
	}
	for _, w := range r.Winners {
		p.Winners = append(p.Winners, events.ResultWinner{
			Username:     w.Username,
			ChosenNumber: w.ChosenNumber,
		})
	}
	return p
}
