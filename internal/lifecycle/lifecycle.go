// Package lifecycle drives offer status transitions. All transitions go
// through conditional storage updates so concurrent callers cannot move an
// offer out of a status twice.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"offerportal/internal/models"
)

// OfferStore is the storage surface transitions run against.
// UpdateOfferStatus must apply the change only when the offer is still in the
// from status and report whether a row changed.
type OfferStore interface {
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	UpdateOfferStatus(ctx context.Context, id string, from, to models.OfferStatus, winner *string) (bool, error)
}

type Manager struct {
	store OfferStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewManager creates a Manager. now may be nil, in which case time.Now is
// used; tests inject a fixed clock.
func NewManager(store OfferStore, now func() time.Time, log zerolog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store: store,
		now:   now,
		log:   log.With().Str("component", "lifecycle").Logger(),
	}
}

// EvaluateExpiry moves an active offer whose deadline has passed into
// under_evaluation. It reports whether this call performed the transition:
// false with a nil error means the offer was not active, its deadline is
// still ahead, or another caller already moved it. Safe to call redundantly.
func (m *Manager) EvaluateExpiry(ctx context.Context, offer *models.Offer) (bool, error) {
	if offer.Status != models.OfferActive {
		return false, nil
	}
	if m.now().Before(offer.Deadline) {
		return false, nil
	}
	moved, err := m.store.UpdateOfferStatus(ctx, offer.Id, models.OfferActive, models.OfferUnderEvaluation, nil)
	if err != nil {
		return false, fmt.Errorf("lifecycle.Manager.EvaluateExpiry: %w", err)
	}
	if moved {
		m.log.Info().Str("offer_id", offer.Id).Msg("offer moved to under_evaluation")
	}
	return moved, nil
}

// SetWinner closes an offer under evaluation with a winning candidate.
func (m *Manager) SetWinner(ctx context.Context, id, winnerName string) error {
	if winnerName == "" {
		return &models.ValidationError{Field: "winnerName", Reason: "must not be empty"}
	}
	return m.transition(ctx, id, models.OfferUnderEvaluation, models.OfferResult, &winnerName)
}

// SetUnsuccessful closes an offer under evaluation without a winner. It
// refuses while the deadline is still ahead.
func (m *Manager) SetUnsuccessful(ctx context.Context, id string) error {
	offer, err := m.store.GetOffer(ctx, id)
	if err != nil {
		return fmt.Errorf("lifecycle.Manager.SetUnsuccessful: %w", err)
	}
	if offer.Status.Terminal() {
		return models.ErrOfferFinalized
	}
	if m.now().Before(offer.Deadline) {
		return models.ErrNotExpired
	}
	return m.transition(ctx, id, models.OfferUnderEvaluation, models.OfferUnsuccessful, nil)
}

func (m *Manager) transition(ctx context.Context, id string, from, to models.OfferStatus, winner *string) error {
	moved, err := m.store.UpdateOfferStatus(ctx, id, from, to, winner)
	if err != nil {
		return fmt.Errorf("lifecycle.Manager.transition: %w", err)
	}
	if moved {
		m.log.Info().Str("offer_id", id).
			Str("from", string(from)).Str("to", string(to)).
			Msg("offer status changed")
		return nil
	}

	// The conditional update matched nothing. Distinguish a missing offer
	// from one in the wrong status for the error surfaced to the caller.
	offer, err := m.store.GetOffer(ctx, id)
	if err != nil {
		return fmt.Errorf("lifecycle.Manager.transition: %w", err)
	}
	if offer.Status.Terminal() {
		return models.ErrOfferFinalized
	}
	return models.ErrInvalidTransition
}
