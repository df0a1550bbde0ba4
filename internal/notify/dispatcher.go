package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"offerportal/internal/models"
)

// Dispatcher fans lifecycle events out to the interested mailboxes. A failed
// delivery to one recipient never prevents delivery to the others.
type Dispatcher struct {
	sender Sender
	log    zerolog.Logger
}

func NewDispatcher(sender Sender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		log:    log.With().Str("component", "dispatcher").Logger(),
	}
}

// ResolveRecipients builds the delivery list for an offer: the creator's
// address first, then the offer's extra recipients with duplicates and blanks
// dropped. Extra recipients beyond models.MaxRecipients are ignored.
func ResolveRecipients(offer *models.Offer) []string {
	out := make([]string, 0, 1+len(offer.Recipients))
	seen := make(map[string]bool)
	if offer.CreatorEmail != "" {
		out = append(out, offer.CreatorEmail)
		seen[offer.CreatorEmail] = true
	}
	extras := 0
	for _, addr := range offer.Recipients {
		if addr == "" || seen[addr] {
			continue
		}
		if extras >= models.MaxRecipients {
			break
		}
		seen[addr] = true
		out = append(out, addr)
		extras++
	}
	return out
}

var thresholdSubjects = map[models.Threshold]string{
	models.ThresholdFiveDay:  "Reminder: 5 days until the deadline of %s",
	models.ThresholdTwoDay:   "Reminder: 2 days until the deadline of %s",
	models.ThresholdOneDay:   "Reminder: 1 day until the deadline of %s",
	models.ThresholdDeadline: "Offer closed: %s",
}

var thresholdRemaining = map[models.Threshold]string{
	models.ThresholdFiveDay: "5 days",
	models.ThresholdTwoDay:  "2 days",
	models.ThresholdOneDay:  "1 day",
}

// NotifyThreshold sends the reminder for one claimed threshold to every
// resolved recipient. It returns an error only when no recipient could be
// reached; partial failures are logged and counted.
func (d *Dispatcher) NotifyThreshold(ctx context.Context, offer *models.Offer, threshold models.Threshold, applicationCount int) error {
	recipients := ResolveRecipients(offer)
	if len(recipients) == 0 {
		d.log.Warn().Str("offer_id", offer.Id).Msg("no recipients for threshold notification")
		return nil
	}

	templateName := "reminder"
	if threshold == models.ThresholdDeadline {
		templateName = "expired"
	}
	subject := fmt.Sprintf(thresholdSubjects[threshold], offer.Title)
	data := map[string]any{
		"OfferTitle":       offer.Title,
		"Reference":        offer.Reference,
		"Deadline":         offer.Deadline.Format(time.RFC1123),
		"Remaining":        thresholdRemaining[threshold],
		"ApplicationCount": applicationCount,
	}

	failed := 0
	for _, to := range recipients {
		if err := d.sender.Send(ctx, to, subject, templateName, data); err != nil {
			failed++
			d.log.Error().Err(err).
				Str("offer_id", offer.Id).
				Str("threshold", string(threshold)).
				Str("to", to).
				Msg("threshold notification failed")
		}
	}
	if failed == len(recipients) {
		return fmt.Errorf("notify.Dispatcher.NotifyThreshold: all %d deliveries failed", failed)
	}
	if failed > 0 {
		d.log.Warn().Str("offer_id", offer.Id).
			Int("failed", failed).Int("total", len(recipients)).
			Msg("threshold notification partially delivered")
	}
	return nil
}

// NotifyApplicationReceived confirms a submitted application to the applicant.
func (d *Dispatcher) NotifyApplicationReceived(ctx context.Context, offer *models.Offer, app *models.Application) error {
	data := map[string]any{
		"ApplicantName": app.FullName,
		"OfferTitle":    offer.Title,
		"Reference":     offer.Reference,
	}
	subject := fmt.Sprintf("Application received: %s", offer.Title)
	if err := d.sender.Send(ctx, app.Email, subject, "application_received", data); err != nil {
		return fmt.Errorf("notify.Dispatcher.NotifyApplicationReceived: %w", err)
	}
	return nil
}

// NotifyQuestion forwards a new visitor question to the offer's recipients.
func (d *Dispatcher) NotifyQuestion(ctx context.Context, offer *models.Offer, q *models.Question) error {
	data := map[string]any{
		"OfferTitle": offer.Title,
		"Reference":  offer.Reference,
		"AuthorName": q.AuthorName,
		"Question":   q.Text,
	}
	subject := fmt.Sprintf("New question on %s", offer.Title)
	failed := 0
	recipients := ResolveRecipients(offer)
	for _, to := range recipients {
		if err := d.sender.Send(ctx, to, subject, "question", data); err != nil {
			failed++
			d.log.Error().Err(err).Str("offer_id", offer.Id).Str("to", to).Msg("question notification failed")
		}
	}
	if len(recipients) > 0 && failed == len(recipients) {
		return fmt.Errorf("notify.Dispatcher.NotifyQuestion: all %d deliveries failed", failed)
	}
	return nil
}

// NotifyAnswer mails the published answer back to the question's author.
func (d *Dispatcher) NotifyAnswer(ctx context.Context, offer *models.Offer, q *models.Question) error {
	if q.Email == "" || q.Answer == nil {
		return nil
	}
	data := map[string]any{
		"OfferTitle": offer.Title,
		"Question":   q.Text,
		"Answer":     *q.Answer,
	}
	subject := fmt.Sprintf("Your question on %s was answered", offer.Title)
	if err := d.sender.Send(ctx, q.Email, subject, "answer", data); err != nil {
		return fmt.Errorf("notify.Dispatcher.NotifyAnswer: %w", err)
	}
	return nil
}
