package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerportal/internal/models"
)

type mockStore struct {
	offers map[string]*models.Offer
	calls  int
}

func newMockStore(offers ...*models.Offer) *mockStore {
	m := &mockStore{offers: make(map[string]*models.Offer)}
	for _, o := range offers {
		m.offers[o.Id] = o
	}
	return m
}

func (m *mockStore) GetOffer(_ context.Context, id string) (*models.Offer, error) {
	offer, ok := m.offers[id]
	if !ok {
		return nil, models.ErrNoOffer
	}
	cp := *offer
	return &cp, nil
}

func (m *mockStore) UpdateOfferStatus(_ context.Context, id string, from, to models.OfferStatus, winner *string) (bool, error) {
	m.calls++
	offer, ok := m.offers[id]
	if !ok || offer.Status != from {
		return false, nil
	}
	offer.Status = to
	if winner != nil {
		offer.WinnerName = winner
	}
	return true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEvaluateExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("expired active offer moves to under_evaluation", func(t *testing.T) {
		store := newMockStore(&models.Offer{
			Id: "o1", Status: models.OfferActive, Deadline: now.Add(-time.Hour),
		})
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		moved, err := mgr.EvaluateExpiry(ctx, store.offers["o1"])
		require.NoError(t, err)
		assert.True(t, moved)
		assert.Equal(t, models.OfferUnderEvaluation, store.offers["o1"].Status)
	})

	t.Run("deadline exactly now counts as expired", func(t *testing.T) {
		store := newMockStore(&models.Offer{
			Id: "o1", Status: models.OfferActive, Deadline: now,
		})
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		moved, err := mgr.EvaluateExpiry(ctx, store.offers["o1"])
		require.NoError(t, err)
		assert.True(t, moved)
	})

	t.Run("future deadline is a no-op", func(t *testing.T) {
		offer := &models.Offer{Id: "o1", Status: models.OfferActive, Deadline: now.Add(time.Minute)}
		store := newMockStore(offer)
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		moved, err := mgr.EvaluateExpiry(ctx, offer)
		require.NoError(t, err)
		assert.False(t, moved)
		assert.Equal(t, models.OfferActive, offer.Status)
		assert.Zero(t, store.calls)
	})

	t.Run("non-active offer is a no-op", func(t *testing.T) {
		offer := &models.Offer{Id: "o1", Status: models.OfferResult, Deadline: now.Add(-time.Hour)}
		store := newMockStore(offer)
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		moved, err := mgr.EvaluateExpiry(ctx, offer)
		require.NoError(t, err)
		assert.False(t, moved)
		assert.Zero(t, store.calls)
	})

	t.Run("lost race reported as not moved", func(t *testing.T) {
		// The snapshot says active but the stored row has already moved on.
		stale := &models.Offer{Id: "o1", Status: models.OfferActive, Deadline: now.Add(-time.Hour)}
		store := newMockStore(&models.Offer{
			Id: "o1", Status: models.OfferUnderEvaluation, Deadline: now.Add(-time.Hour),
		})
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		moved, err := mgr.EvaluateExpiry(ctx, stale)
		require.NoError(t, err)
		assert.False(t, moved)
	})
}

func TestSetWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("closes an offer under evaluation", func(t *testing.T) {
		store := newMockStore(&models.Offer{Id: "o1", Status: models.OfferUnderEvaluation})
		mgr := NewManager(store, nil, zerolog.Nop())
		require.NoError(t, mgr.SetWinner(ctx, "o1", "ACME Ltd"))
		assert.Equal(t, models.OfferResult, store.offers["o1"].Status)
		require.NotNil(t, store.offers["o1"].WinnerName)
		assert.Equal(t, "ACME Ltd", *store.offers["o1"].WinnerName)
	})

	t.Run("rejected while offer still active", func(t *testing.T) {
		store := newMockStore(&models.Offer{Id: "o1", Status: models.OfferActive})
		mgr := NewManager(store, nil, zerolog.Nop())
		err := mgr.SetWinner(ctx, "o1", "ACME Ltd")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("rejected on terminal offer", func(t *testing.T) {
		store := newMockStore(&models.Offer{Id: "o1", Status: models.OfferUnsuccessful})
		mgr := NewManager(store, nil, zerolog.Nop())
		err := mgr.SetWinner(ctx, "o1", "ACME Ltd")
		assert.ErrorIs(t, err, models.ErrOfferFinalized)
	})

	t.Run("empty winner name rejected before storage", func(t *testing.T) {
		store := newMockStore(&models.Offer{Id: "o1", Status: models.OfferUnderEvaluation})
		mgr := NewManager(store, nil, zerolog.Nop())
		var verr *models.ValidationError
		assert.ErrorAs(t, mgr.SetWinner(ctx, "o1", ""), &verr)
		assert.Zero(t, store.calls)
	})

	t.Run("missing offer", func(t *testing.T) {
		mgr := NewManager(newMockStore(), nil, zerolog.Nop())
		err := mgr.SetWinner(ctx, "nope", "ACME Ltd")
		assert.ErrorIs(t, err, models.ErrNoOffer)
	})
}

func TestSetUnsuccessful(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("closes an offer under evaluation", func(t *testing.T) {
		store := newMockStore(&models.Offer{
			Id: "o1", Status: models.OfferUnderEvaluation, Deadline: now.Add(-time.Hour),
		})
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		require.NoError(t, mgr.SetUnsuccessful(ctx, "o1"))
		assert.Equal(t, models.OfferUnsuccessful, store.offers["o1"].Status)
		assert.Nil(t, store.offers["o1"].WinnerName)
	})

	t.Run("rejected while deadline still ahead", func(t *testing.T) {
		store := newMockStore(&models.Offer{
			Id: "o1", Status: models.OfferUnderEvaluation, Deadline: now.Add(48 * time.Hour),
		})
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		assert.ErrorIs(t, mgr.SetUnsuccessful(ctx, "o1"), models.ErrNotExpired)
		assert.Equal(t, models.OfferUnderEvaluation, store.offers["o1"].Status)
		assert.Zero(t, store.calls)
	})

	t.Run("second close is rejected", func(t *testing.T) {
		store := newMockStore(&models.Offer{
			Id: "o1", Status: models.OfferUnderEvaluation, Deadline: now.Add(-time.Hour),
		})
		mgr := NewManager(store, fixedClock(now), zerolog.Nop())
		require.NoError(t, mgr.SetUnsuccessful(ctx, "o1"))
		assert.ErrorIs(t, mgr.SetUnsuccessful(ctx, "o1"), models.ErrOfferFinalized)
	})

	t.Run("missing offer", func(t *testing.T) {
		mgr := NewManager(newMockStore(), fixedClock(now), zerolog.Nop())
		assert.ErrorIs(t, mgr.SetUnsuccessful(ctx, "nope"), models.ErrNoOffer)
	})
}
