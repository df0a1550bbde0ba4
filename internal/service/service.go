package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"offerportal/internal/archive"
	"offerportal/internal/docs"
	"offerportal/internal/models"
)

// Store is the persistence surface the service works against. Implemented by
// repository.Repository and by mock stores in tests.
type Store interface {
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	GetOffers(ctx context.Context, limit, offset int, statuses []models.OfferStatus, types []models.OfferType, country string) ([]*models.Offer, error)
	AddOffer(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	UpdateOffer(ctx context.Context, offer *models.Offer) (bool, error)
	DeleteOffer(ctx context.Context, id string) error

	AddApplication(ctx context.Context, app *models.Application) (*models.Application, error)
	ApplicationExists(ctx context.Context, offerId, email string) (bool, error)
	ListApplications(ctx context.Context, offerId string) ([]*models.Application, error)
	CountApplications(ctx context.Context, offerId string) (int, error)

	AddQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	GetQuestions(ctx context.Context, offerId string, answeredOnly bool) ([]*models.Question, error)
	AnswerQuestion(ctx context.Context, id, answer string) (bool, error)
	DeleteAnswer(ctx context.Context, id string) (bool, error)
}

// Lifecycle closes offers.
type Lifecycle interface {
	SetWinner(ctx context.Context, id, winnerName string) error
	SetUnsuccessful(ctx context.Context, id string) error
}

// Checker settles an offer's deadline state on demand.
type Checker interface {
	CheckOffer(ctx context.Context, id string) error
}

// Archiver bundles a closed offer's applications.
type Archiver interface {
	ArchiveOffer(ctx context.Context, offer *models.Offer) (*archive.Result, error)
}

// Notifier sends the event mail the service triggers directly.
type Notifier interface {
	NotifyApplicationReceived(ctx context.Context, offer *models.Offer, app *models.Application) error
	NotifyQuestion(ctx context.Context, offer *models.Offer, q *models.Question) error
	NotifyAnswer(ctx context.Context, offer *models.Offer, q *models.Question) error
}

type Service struct {
	repo          Store
	lifecycle     Lifecycle
	checker       Checker
	archiver      Archiver
	notifier      Notifier
	archiveWindow time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

func NewService(repo Store, lc Lifecycle, checker Checker, archiver Archiver, notifier Notifier, archiveWindow time.Duration, now func() time.Time, log zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if archiveWindow <= 0 {
		archiveWindow = archive.DefaultWindow
	}
	return &Service{
		repo:          repo,
		lifecycle:     lc,
		checker:       checker,
		archiver:      archiver,
		notifier:      notifier,
		archiveWindow: archiveWindow,
		now:           now,
		log:           log.With().Str("component", "service").Logger(),
	}
}

//// Offers

func (s *Service) CreateOffer(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := s.validateOffer(offer, true); err != nil {
		return nil, err
	}

	created, err := s.repo.AddOffer(ctx, offer)
	if err != nil {
		return nil, fmt.Errorf("service.Service.CreateOffer: %w", err)
	}
	s.log.Info().Str("offer_id", created.Id).Str("type", string(created.Type)).Msg("offer created")
	return created, nil
}

func (s *Service) EditOffer(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := s.validateOffer(offer, false); err != nil {
		return nil, err
	}

	changed, err := s.repo.UpdateOffer(ctx, offer)
	if err != nil {
		return nil, fmt.Errorf("service.Service.EditOffer: %w", err)
	}
	if !changed {
		// Missing offer or one that left the active status.
		if _, err := s.repo.GetOffer(ctx, offer.Id); err != nil {
			return nil, err
		}
		return nil, models.ErrOfferFinalized
	}

	updated, err := s.repo.GetOffer(ctx, offer.Id)
	if err != nil {
		return nil, fmt.Errorf("service.Service.EditOffer: %w", err)
	}
	return updated, nil
}

func (s *Service) GetOffers(ctx context.Context, limit, offset int, statuses []models.OfferStatus, types []models.OfferType, country string) ([]*models.Offer, error) {
	offers, err := s.repo.GetOffers(ctx, limit, offset, statuses, types, country)
	if err != nil {
		return nil, fmt.Errorf("service.Service.GetOffers: %w", err)
	}
	for _, offer := range offers {
		s.stampArchiveWindow(offer)
	}
	return offers, nil
}

// GetOffer settles the offer's deadline state before returning it, so a read
// arriving after the deadline but before the next sweep still sees the offer
// under evaluation. A failed check degrades to a plain read.
func (s *Service) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	if err := s.checker.CheckOffer(ctx, id); err != nil {
		if errors.Is(err, models.ErrNoOffer) {
			return nil, models.ErrNoOffer
		}
		s.log.Error().Err(err).Str("offer_id", id).Msg("deadline check failed on read")
	}

	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.Service.GetOffer: %w", err)
	}
	s.stampArchiveWindow(offer)
	return offer, nil
}

// DeleteOffer removes an offer that never received applications. Offers with
// applications are kept for the archive trail.
func (s *Service) DeleteOffer(ctx context.Context, offerId string) error {
	if _, err := s.repo.GetOffer(ctx, offerId); err != nil {
		return fmt.Errorf("service.Service.DeleteOffer: %w", err)
	}

	count, err := s.repo.CountApplications(ctx, offerId)
	if err != nil {
		return fmt.Errorf("service.Service.DeleteOffer: %w", err)
	}
	if count > 0 {
		return models.ErrHasApplications
	}

	if err := s.repo.DeleteOffer(ctx, offerId); err != nil {
		return fmt.Errorf("service.Service.DeleteOffer: %w", err)
	}
	return nil
}

// Closed offers expose when their archive window shuts, so listings can
// surface the remaining retention without a second call. The window runs
// from the deadline.
func (s *Service) stampArchiveWindow(offer *models.Offer) {
	if offer.Status != models.OfferActive {
		closes := offer.Deadline.Add(s.archiveWindow)
		offer.ArchiveClosesAt = &closes
	}
}

// CheckOffer runs the deadline routine for one offer immediately.
func (s *Service) CheckOffer(ctx context.Context, id string) (*models.Offer, error) {
	if err := s.checker.CheckOffer(ctx, id); err != nil {
		return nil, fmt.Errorf("service.Service.CheckOffer: %w", err)
	}
	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.Service.CheckOffer: %w", err)
	}
	return offer, nil
}

func (s *Service) Requirements(ctx context.Context, offerId string) ([]docs.Requirement, error) {
	offer, err := s.repo.GetOffer(ctx, offerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.Requirements: %w", err)
	}
	return docs.Resolve(offer), nil
}

func (s *Service) SetWinner(ctx context.Context, offerId, winnerName string) (*models.Offer, error) {
	if err := s.lifecycle.SetWinner(ctx, offerId, winnerName); err != nil {
		return nil, err
	}
	offer, err := s.repo.GetOffer(ctx, offerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.SetWinner: %w", err)
	}
	return offer, nil
}

func (s *Service) SetUnsuccessful(ctx context.Context, offerId string) (*models.Offer, error) {
	if err := s.lifecycle.SetUnsuccessful(ctx, offerId); err != nil {
		return nil, err
	}
	offer, err := s.repo.GetOffer(ctx, offerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.SetUnsuccessful: %w", err)
	}
	return offer, nil
}

//// Applications

// Apply accepts a submission on an active offer. The offer's deadline state
// is settled first, so an expired offer rejects the application even before
// the sweep has seen it.
func (s *Service) Apply(ctx context.Context, app *models.Application) (*models.Application, error) {
	if app.FullName == "" {
		return nil, &models.ValidationError{Field: "fullName", Reason: "must not be empty"}
	}
	if app.Email == "" {
		return nil, &models.ValidationError{Field: "email", Reason: "must not be empty"}
	}

	offer, err := s.GetOffer(ctx, app.OfferId)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferActive {
		return nil, models.ErrOfferFinalized
	}

	exists, err := s.repo.ApplicationExists(ctx, app.OfferId, app.Email)
	if err != nil {
		return nil, fmt.Errorf("service.Service.Apply: %w", err)
	}
	if exists {
		return nil, models.ErrAlreadyApplied
	}

	if err := docs.ValidateSubmission(offer, app.Documents); err != nil {
		return nil, err
	}

	created, err := s.repo.AddApplication(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("service.Service.Apply: %w", err)
	}
	s.log.Info().Str("offer_id", offer.Id).Str("application_id", created.Id).Msg("application received")

	if err := s.notifier.NotifyApplicationReceived(ctx, offer, created); err != nil {
		s.log.Error().Err(err).Str("application_id", created.Id).Msg("confirmation email failed")
	}
	return created, nil
}

func (s *Service) GetApplications(ctx context.Context, offerId string) ([]*models.Application, error) {
	if _, err := s.repo.GetOffer(ctx, offerId); err != nil {
		return nil, fmt.Errorf("service.Service.GetApplications: %w", err)
	}
	apps, err := s.repo.ListApplications(ctx, offerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.GetApplications: %w", err)
	}
	return apps, nil
}

//// Archive

func (s *Service) ArchiveOffer(ctx context.Context, offerId string) (*archive.Result, error) {
	offer, err := s.repo.GetOffer(ctx, offerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ArchiveOffer: %w", err)
	}
	return s.archiver.ArchiveOffer(ctx, offer)
}

func (s *Service) ArchiveWindow(ctx context.Context, offerId string) (*archive.WindowState, error) {
	offer, err := s.repo.GetOffer(ctx, offerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ArchiveWindow: %w", err)
	}
	state, err := archive.Window(offer, s.now(), s.archiveWindow)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

//// Questions

func (s *Service) AskQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	if q.Text == "" {
		return nil, &models.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if q.AuthorName == "" {
		return nil, &models.ValidationError{Field: "authorName", Reason: "must not be empty"}
	}

	offer, err := s.repo.GetOffer(ctx, q.OfferId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.AskQuestion: %w", err)
	}
	if offer.Status != models.OfferActive {
		return nil, models.ErrOfferFinalized
	}

	created, err := s.repo.AddQuestion(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service.Service.AskQuestion: %w", err)
	}

	if err := s.notifier.NotifyQuestion(ctx, offer, created); err != nil {
		s.log.Error().Err(err).Str("question_id", created.Id).Msg("question notification failed")
	}
	return created, nil
}

func (s *Service) AnswerQuestion(ctx context.Context, questionId, answer string) (*models.Question, error) {
	if answer == "" {
		return nil, &models.ValidationError{Field: "answer", Reason: "must not be empty"}
	}

	q, err := s.repo.GetQuestion(ctx, questionId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.AnswerQuestion: %w", err)
	}

	offer, err := s.repo.GetOffer(ctx, q.OfferId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.AnswerQuestion: %w", err)
	}
	if offer.Status != models.OfferActive {
		return nil, models.ErrOfferFinalized
	}

	changed, err := s.repo.AnswerQuestion(ctx, questionId, answer)
	if err != nil {
		return nil, fmt.Errorf("service.Service.AnswerQuestion: %w", err)
	}
	if !changed {
		return nil, models.ErrNoQuestion
	}

	q, err = s.repo.GetQuestion(ctx, questionId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.AnswerQuestion: %w", err)
	}
	if err := s.notifier.NotifyAnswer(ctx, offer, q); err != nil {
		s.log.Error().Err(err).Str("question_id", q.Id).Msg("answer notification failed")
	}
	return q, nil
}

func (s *Service) DeleteAnswer(ctx context.Context, questionId string) error {
	changed, err := s.repo.DeleteAnswer(ctx, questionId)
	if err != nil {
		return fmt.Errorf("service.Service.DeleteAnswer: %w", err)
	}
	if !changed {
		return models.ErrNoQuestion
	}
	return nil
}

func (s *Service) GetQuestions(ctx context.Context, offerId string, answeredOnly bool) ([]*models.Question, error) {
	questions, err := s.repo.GetQuestions(ctx, offerId, answeredOnly)
	if err != nil {
		return nil, fmt.Errorf("service.Service.GetQuestions: %w", err)
	}
	return questions, nil
}

//// Service

func (s *Service) validateOffer(offer *models.Offer, isNew bool) error {
	if offer.Title == "" {
		return &models.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if isNew {
		if !models.ValidOfferType(offer.Type) {
			return &models.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown offer type %q", offer.Type)}
		}
		if !models.ValidOfferMethod(offer.Method) {
			return &models.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown offer method %q", offer.Method)}
		}
		if offer.CreatorEmail == "" {
			return &models.ValidationError{Field: "creatorEmail", Reason: "must not be empty"}
		}
	}
	if !offer.Deadline.After(s.now()) {
		return &models.ValidationError{Field: "deadline", Reason: "must be in the future"}
	}
	if len(offer.Recipients) > models.MaxRecipients {
		return &models.ValidationError{
			Field:  "recipients",
			Reason: fmt.Sprintf("at most %d extra recipients allowed", models.MaxRecipients),
		}
	}

	removable := make(map[string]bool)
	for _, key := range docs.DefaultKeys(offer.Type) {
		removable[key] = true
	}
	for key := range offer.RemovedDefaults {
		if !removable[key] {
			return &models.ValidationError{
				Field:  "removedDefaultDocuments",
				Reason: fmt.Sprintf("%q is not a default document for this offer type", key),
			}
		}
	}

	seen := make(map[string]bool, len(offer.CustomDocuments))
	for _, doc := range offer.CustomDocuments {
		if doc.Key == "" || doc.Name == "" {
			return &models.ValidationError{
				Field:  "customRequiredDocuments",
				Reason: "every custom document needs a key and a name",
			}
		}
		if seen[doc.Key] {
			return &models.ValidationError{
				Field:  "customRequiredDocuments",
				Reason: fmt.Sprintf("duplicate custom document key %q", doc.Key),
			}
		}
		seen[doc.Key] = true
	}
	return nil
}
