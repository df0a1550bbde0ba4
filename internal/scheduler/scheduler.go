// Package scheduler watches offer deadlines. A daily cron sweep and on-demand
// checks both funnel into a single routine so an offer is handled the same way
// regardless of which path reached it first.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"offerportal/internal/models"
)

// Store is the storage surface of the sweep. MarkThresholdNotified must add
// the threshold to the offer's ledger only if absent, atomically, and report
// whether this call claimed it.
type Store interface {
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	ListSweepCandidates(ctx context.Context, horizon time.Duration) ([]*models.Offer, error)
	MarkThresholdNotified(ctx context.Context, id string, threshold models.Threshold) (bool, error)
	CountApplications(ctx context.Context, offerId string) (int, error)
}

// Lifecycle moves expired offers out of the active status.
type Lifecycle interface {
	EvaluateExpiry(ctx context.Context, offer *models.Offer) (bool, error)
}

// Notifier delivers a claimed threshold reminder.
type Notifier interface {
	NotifyThreshold(ctx context.Context, offer *models.Offer, threshold models.Threshold, applicationCount int) error
}

type Sweeper struct {
	store     Store
	lifecycle Lifecycle
	notifier  Notifier
	horizon   time.Duration
	now       func() time.Time
	cron      *cron.Cron
	log       zerolog.Logger
}

func NewSweeper(store Store, lc Lifecycle, notifier Notifier, horizon time.Duration, now func() time.Time, log zerolog.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		store:     store,
		lifecycle: lc,
		notifier:  notifier,
		horizon:   horizon,
		now:       now,
		log:       log.With().Str("component", "sweeper").Logger(),
	}
}

// Start schedules the recurring sweep. spec is a standard five-field cron
// expression.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler.Sweeper.Start: %w", err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("spec", spec).Msg("sweep scheduled")
	return nil
}

// Stop halts the cron schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep processes every offer the store flags for attention: active offers
// approaching their deadline and closed ones still owing the deadline notice.
// A failure on one offer never stops the rest of the pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	offers, err := s.store.ListSweepCandidates(ctx, s.horizon)
	if err != nil {
		return fmt.Errorf("scheduler.Sweeper.Sweep: %w", err)
	}
	s.log.Info().Int("candidates", len(offers)).Msg("sweep started")
	for _, offer := range offers {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scheduler.Sweeper.Sweep: %w", err)
		}
		if err := s.processOffer(ctx, offer); err != nil {
			s.log.Error().Err(err).Str("offer_id", offer.Id).Msg("sweep skipped offer")
		}
	}
	return nil
}

// CheckOffer runs the deadline routine for a single offer immediately, for
// callers that just loaded the offer and want its state settled before
// responding. Terminal offers are left untouched.
func (s *Sweeper) CheckOffer(ctx context.Context, id string) error {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return fmt.Errorf("scheduler.Sweeper.CheckOffer: %w", err)
	}
	if offer.Status.Terminal() {
		return nil
	}
	return s.processOffer(ctx, offer)
}

// processOffer settles one offer against the clock: it moves an expired offer
// out of active and delivers at most one reminder, for the single nearest due
// threshold not yet in the ledger. The threshold is claimed in storage before
// any mail goes out, so a crash or delivery failure can suppress a reminder
// but never duplicate one.
func (s *Sweeper) processOffer(ctx context.Context, offer *models.Offer) error {
	remaining := offer.Deadline.Sub(s.now())

	if remaining <= 0 && offer.Status == models.OfferActive {
		if _, err := s.lifecycle.EvaluateExpiry(ctx, offer); err != nil {
			return err
		}
	}

	threshold, due := DueThreshold(remaining)
	if !due || offer.Ledger.Has(threshold) {
		return nil
	}

	claimed, err := s.store.MarkThresholdNotified(ctx, offer.Id, threshold)
	if err != nil {
		return fmt.Errorf("scheduler.Sweeper.processOffer: %w", err)
	}
	if !claimed {
		// Another trigger path got here first.
		return nil
	}
	offer.Ledger = offer.Ledger.Add(threshold)

	count, err := s.store.CountApplications(ctx, offer.Id)
	if err != nil {
		s.log.Error().Err(err).Str("offer_id", offer.Id).Msg("application count unavailable")
		count = 0
	}

	// The threshold stays claimed even if delivery fails; reminders are
	// at-most-once.
	if err := s.notifier.NotifyThreshold(ctx, offer, threshold, count); err != nil {
		s.log.Error().Err(err).
			Str("offer_id", offer.Id).
			Str("threshold", string(threshold)).
			Msg("reminder delivery failed")
	}
	return nil
}

// DueThreshold maps the time remaining before a deadline to the nearest
// reminder threshold. Only the closest window applies: an offer three days
// out is due five_day, an expired one is due deadline.
func DueThreshold(remaining time.Duration) (models.Threshold, bool) {
	switch {
	case remaining <= 0:
		return models.ThresholdDeadline, true
	case remaining <= 24*time.Hour:
		return models.ThresholdOneDay, true
	case remaining <= 48*time.Hour:
		return models.ThresholdTwoDay, true
	case remaining <= 120*time.Hour:
		return models.ThresholdFiveDay, true
	default:
		return "", false
	}
}
