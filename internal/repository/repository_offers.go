package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"offerportal/internal/models"
)

const offerColumns = `
	id,
	type,
	method,
	title,
	description,
	country,
	reference,
	creator_name,
	creator_email,
	deadline,
	status,
	winner_name,
	closed_at,
	notification_ledger,
	recipients,
	removed_defaults,
	custom_documents,
	terms_filename,
	terms_path,
	created_at,
	updated_at`

func (repo *Repository) scanOffer(row interface{ Scan(...interface{}) error }) (*models.Offer, error) {
	var offer models.Offer
	var ledger, recipients, removed []string
	var customDocs []byte
	var winner, termsFilename, termsPath sql.NullString
	var closedAt sql.NullTime

	err := row.Scan(
		&offer.Id, &offer.Type, &offer.Method, &offer.Title, &offer.Description,
		&offer.Country, &offer.Reference, &offer.CreatorName, &offer.CreatorEmail,
		&offer.Deadline, &offer.Status, &winner, &closedAt,
		pq.Array(&ledger), pq.Array(&recipients), pq.Array(&removed),
		&customDocs, &termsFilename, &termsPath,
		&offer.CreatedAt, &offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if winner.Valid {
		offer.WinnerName = &winner.String
	}
	if closedAt.Valid {
		t := closedAt.Time
		offer.ClosedAt = &t
	}
	offer.Ledger = models.ThresholdSetFromStrings(ledger)
	offer.Recipients = recipients
	offer.RemovedDefaults = models.NewDocumentKeySet(removed...)
	offer.TermsFilename = termsFilename.String
	offer.TermsPath = termsPath.String
	if len(customDocs) > 0 {
		if err := json.Unmarshal(customDocs, &offer.CustomDocuments); err != nil {
			return nil, fmt.Errorf("custom documents decode failed: %w", err)
		}
	}
	return &offer, nil
}

func (repo *Repository) prepOffersQuery(limit, offset int, statuses []models.OfferStatus, types []models.OfferType, country string) (query string, queryParams []interface{}) {
	query = `
	SELECT ` + offerColumns + `
	FROM offers
	$conditions$
	ORDER BY created_at DESC
	LIMIT $1
	OFFSET $2
	`

	queryParams = make([]interface{}, 0, 5)
	conditions := make([]string, 0, 3)

	if limit <= 0 {
		queryParams = append(queryParams, nil)
	} else {
		queryParams = append(queryParams, limit)
	}
	queryParams = append(queryParams, offset)

	if len(statuses) > 0 {
		conditions = append(conditions, "status = any($$::text[])")
		queryParams = append(queryParams, pq.Array(statusStrings(statuses)))
	}

	if len(types) > 0 {
		conditions = append(conditions, "type = any($$::text[])")
		queryParams = append(queryParams, pq.Array(typeStrings(types)))
	}

	if len(country) > 0 {
		conditions = append(conditions, "country = $$")
		queryParams = append(queryParams, country)
	}

	condStr := ""
	if len(conditions) > 0 {
		for i := 0; i < len(conditions); i++ {
			conditions[i] = strings.Replace(conditions[i], "$$", "$"+strconv.Itoa(i+3), -1)
		}
		condStr = "WHERE " + strings.Join(conditions, " AND ")
	}
	query = strings.Replace(query, "$conditions$", condStr, -1)

	return query, queryParams
}

func statusStrings(statuses []models.OfferStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func typeStrings(types []models.OfferType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (repo *Repository) GetOffers(ctx context.Context, limit, offset int, statuses []models.OfferStatus, types []models.OfferType, country string) ([]*models.Offer, error) {
	query, queryParams := repo.prepOffersQuery(limit, offset, statuses, types, country)

	rows, err := repo.db.QueryContext(ctx, query, queryParams...)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetOffers: %w", err)
	}
	defer rows.Close()

	var result []*models.Offer
	for rows.Next() {
		offer, err := repo.scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetOffers: row scan failed: %w", err)
		}
		result = append(result, offer)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.GetOffers: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	query := `
	SELECT ` + offerColumns + `
	FROM offers
	WHERE id = $1
	`
	offer, err := repo.scanOffer(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoOffer
	} else if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetOffer: %w", err)
	}
	return offer, nil
}

func (repo *Repository) AddOffer(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	customDocs, err := json.Marshal(offer.CustomDocuments)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.AddOffer: %w", err)
	}

	query := `
	INSERT INTO offers
		(type, method, title, description, country, reference, creator_name, creator_email,
		 deadline, status, recipients, removed_defaults, custom_documents, terms_filename, terms_path)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING
		id, created_at, updated_at
	`

	result := *offer
	result.Status = models.OfferActive
	row := repo.db.QueryRowContext(ctx, query,
		offer.Type, offer.Method, offer.Title, offer.Description, offer.Country,
		offer.Reference, offer.CreatorName, offer.CreatorEmail, offer.Deadline,
		models.OfferActive, pq.Array(offer.Recipients),
		pq.Array(offer.RemovedDefaults.Keys()), customDocs,
		nullString(offer.TermsFilename), nullString(offer.TermsPath),
	)
	err = row.Scan(&result.Id, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.AddOffer: %w", err)
	}

	return &result, nil
}

// UpdateOffer rewrites the editable fields of an offer that is still active.
// It reports false when the offer is missing or no longer active.
func (repo *Repository) UpdateOffer(ctx context.Context, offer *models.Offer) (bool, error) {
	customDocs, err := json.Marshal(offer.CustomDocuments)
	if err != nil {
		return false, fmt.Errorf("repository.Repository.UpdateOffer: %w", err)
	}

	query := `
	UPDATE offers
	SET (title, description, country, deadline, recipients, removed_defaults,
	     custom_documents, terms_filename, terms_path, updated_at) =
	    ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
	WHERE id = $10 AND status = $11
	`

	res, err := repo.db.ExecContext(ctx, query,
		offer.Title, offer.Description, offer.Country, offer.Deadline,
		pq.Array(offer.Recipients), pq.Array(offer.RemovedDefaults.Keys()),
		customDocs, nullString(offer.TermsFilename), nullString(offer.TermsPath),
		offer.Id, models.OfferActive,
	)
	if err != nil {
		return false, fmt.Errorf("repository.Repository.UpdateOffer: %w", err)
	}
	return rowsChanged(res)
}

// UpdateOfferStatus performs a conditional transition: the row changes only
// while still in the from status. Terminal transitions stamp closed_at.
func (repo *Repository) UpdateOfferStatus(ctx context.Context, id string, from, to models.OfferStatus, winner *string) (bool, error) {
	query := `
	UPDATE offers
	SET status = $1,
	    winner_name = COALESCE($2, winner_name),
	    closed_at = CASE WHEN $3 THEN CURRENT_TIMESTAMP ELSE closed_at END,
	    updated_at = CURRENT_TIMESTAMP
	WHERE id = $4 AND status = $5
	`

	res, err := repo.db.ExecContext(ctx, query, to, winner, to.Terminal(), id, from)
	if err != nil {
		return false, fmt.Errorf("repository.Repository.UpdateOfferStatus: %w", err)
	}
	return rowsChanged(res)
}

// MarkThresholdNotified appends the threshold to the offer's ledger unless
// already present. The array containment guard makes concurrent claims safe:
// exactly one caller sees a changed row.
func (repo *Repository) MarkThresholdNotified(ctx context.Context, id string, threshold models.Threshold) (bool, error) {
	query := `
	UPDATE offers
	SET notification_ledger = array_append(notification_ledger, $1),
	    updated_at = CURRENT_TIMESTAMP
	WHERE id = $2 AND NOT (notification_ledger @> ARRAY[$1])
	`

	res, err := repo.db.ExecContext(ctx, query, string(threshold), id)
	if err != nil {
		return false, fmt.Errorf("repository.Repository.MarkThresholdNotified: %w", err)
	}
	return rowsChanged(res)
}

// ListSweepCandidates returns active offers whose deadline falls before the
// horizon, including those already past it. Offers already moved to evaluation
// but whose ledger lacks the deadline entry are included too, so an expired
// notice interrupted mid-sweep is retried on the next pass.
func (repo *Repository) ListSweepCandidates(ctx context.Context, horizon time.Duration) ([]*models.Offer, error) {
	query := `
	SELECT ` + offerColumns + `
	FROM offers
	WHERE (status = $1 AND deadline <= CURRENT_TIMESTAMP + $2::interval)
	   OR (status = $3 AND NOT (notification_ledger @> ARRAY[$4]))
	ORDER BY deadline
	`

	interval := fmt.Sprintf("%d seconds", int64(horizon.Seconds()))
	rows, err := repo.db.QueryContext(ctx, query,
		models.OfferActive, interval,
		models.OfferUnderEvaluation, string(models.ThresholdDeadline))
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.ListSweepCandidates: %w", err)
	}
	defer rows.Close()

	var result []*models.Offer
	for rows.Next() {
		offer, err := repo.scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.ListSweepCandidates: row scan failed: %w", err)
		}
		result = append(result, offer)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.ListSweepCandidates: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) DeleteOffer(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM offers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("repository.Repository.DeleteOffer: %w", err)
	}
	return nil
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
