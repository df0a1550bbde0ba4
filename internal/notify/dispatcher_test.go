package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerportal/internal/models"
)

type sentMail struct {
	to       string
	subject  string
	template string
}

type mockSender struct {
	sent    []sentMail
	failFor map[string]error
}

func (m *mockSender) Send(_ context.Context, to, subject, templateName string, _ any) error {
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, template: templateName})
	return nil
}

func testOffer(recipients ...string) *models.Offer {
	return &models.Offer{
		Id:           "o1",
		Title:        "Road rehabilitation phase 2",
		Reference:    "RR-2026-014",
		CreatorEmail: "owner@example.org",
		Recipients:   recipients,
		Deadline:     time.Date(2026, 4, 1, 23, 59, 0, 0, time.UTC),
	}
}

func TestResolveRecipients(t *testing.T) {
	t.Run("creator comes first", func(t *testing.T) {
		got := ResolveRecipients(testOffer("a@example.org", "b@example.org"))
		assert.Equal(t, []string{"owner@example.org", "a@example.org", "b@example.org"}, got)
	})

	t.Run("duplicates and blanks dropped", func(t *testing.T) {
		got := ResolveRecipients(testOffer("a@example.org", "", "owner@example.org", "a@example.org"))
		assert.Equal(t, []string{"owner@example.org", "a@example.org"}, got)
	})

	t.Run("extras capped", func(t *testing.T) {
		extras := make([]string, 0, models.MaxRecipients+5)
		for i := 0; i < models.MaxRecipients+5; i++ {
			extras = append(extras, string(rune('a'+i))+"@example.org")
		}
		got := ResolveRecipients(testOffer(extras...))
		assert.Len(t, got, models.MaxRecipients+1)
	})

	t.Run("offer without creator email", func(t *testing.T) {
		offer := testOffer("a@example.org")
		offer.CreatorEmail = ""
		assert.Equal(t, []string{"a@example.org"}, ResolveRecipients(offer))
	})
}

func TestNotifyThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("reminder goes to every recipient", func(t *testing.T) {
		sender := &mockSender{}
		d := NewDispatcher(sender, zerolog.Nop())
		err := d.NotifyThreshold(ctx, testOffer("a@example.org"), models.ThresholdTwoDay, 3)
		require.NoError(t, err)
		require.Len(t, sender.sent, 2)
		assert.Equal(t, "owner@example.org", sender.sent[0].to)
		assert.Equal(t, "reminder", sender.sent[0].template)
		assert.Contains(t, sender.sent[0].subject, "2 days")
	})

	t.Run("deadline threshold uses the expired template", func(t *testing.T) {
		sender := &mockSender{}
		d := NewDispatcher(sender, zerolog.Nop())
		err := d.NotifyThreshold(ctx, testOffer(), models.ThresholdDeadline, 0)
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "expired", sender.sent[0].template)
		assert.Contains(t, sender.sent[0].subject, "closed")
	})

	t.Run("one failed recipient does not block the rest", func(t *testing.T) {
		sender := &mockSender{failFor: map[string]error{
			"owner@example.org": errors.New("mailbox unavailable"),
		}}
		d := NewDispatcher(sender, zerolog.Nop())
		err := d.NotifyThreshold(ctx, testOffer("a@example.org", "b@example.org"), models.ThresholdOneDay, 1)
		require.NoError(t, err)
		require.Len(t, sender.sent, 2)
		assert.Equal(t, "a@example.org", sender.sent[0].to)
		assert.Equal(t, "b@example.org", sender.sent[1].to)
	})

	t.Run("total delivery failure is reported", func(t *testing.T) {
		sender := &mockSender{failFor: map[string]error{
			"owner@example.org": errors.New("refused"),
			"a@example.org":     errors.New("refused"),
		}}
		d := NewDispatcher(sender, zerolog.Nop())
		err := d.NotifyThreshold(ctx, testOffer("a@example.org"), models.ThresholdFiveDay, 0)
		assert.Error(t, err)
	})

	t.Run("no recipients is a logged no-op", func(t *testing.T) {
		offer := testOffer()
		offer.CreatorEmail = ""
		sender := &mockSender{}
		d := NewDispatcher(sender, zerolog.Nop())
		assert.NoError(t, d.NotifyThreshold(ctx, offer, models.ThresholdFiveDay, 0))
		assert.Empty(t, sender.sent)
	})
}

func TestNotifyApplicationReceived(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(sender, zerolog.Nop())
	app := &models.Application{FullName: "Jane Doe", Email: "jane@example.org"}
	require.NoError(t, d.NotifyApplicationReceived(context.Background(), testOffer(), app))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "jane@example.org", sender.sent[0].to)
	assert.Equal(t, "application_received", sender.sent[0].template)
}

func TestNotifyAnswer(t *testing.T) {
	t.Run("answer mailed to the author", func(t *testing.T) {
		sender := &mockSender{}
		d := NewDispatcher(sender, zerolog.Nop())
		answer := "Submission by post is accepted."
		q := &models.Question{Email: "ask@example.org", Text: "Can I submit by post?", Answer: &answer}
		require.NoError(t, d.NotifyAnswer(context.Background(), testOffer(), q))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "answer", sender.sent[0].template)
	})

	t.Run("anonymous question is skipped", func(t *testing.T) {
		sender := &mockSender{}
		d := NewDispatcher(sender, zerolog.Nop())
		answer := "Yes."
		q := &models.Question{Text: "Is the deadline firm?", Answer: &answer}
		require.NoError(t, d.NotifyAnswer(context.Background(), testOffer(), q))
		assert.Empty(t, sender.sent)
	})
}
