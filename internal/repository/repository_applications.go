package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"offerportal/internal/models"
)

func (repo *Repository) AddApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	result := *app

	query := `
	INSERT INTO applications
		(offer_id, full_name, email, phone)
	VALUES
		($1, $2, $3, $4)
	RETURNING
		id, created_at
	`

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.AddApplication: failed to start transaction: %w", err)
	}

	row := tx.QueryRowContext(ctx, query, app.OfferId, app.FullName, app.Email, app.Phone)
	err = row.Scan(&result.Id, &result.CreatedAt)
	if err != nil {
		return nil, wrapRollbackErr(tx, fmt.Errorf("repository.Repository.AddApplication: %w", err))
	}

	docQuery := `
	INSERT INTO application_documents
		(application_id, key, name, filename, path, extra)
	VALUES
		($1, $2, $3, $4, $5, $6)
	`
	for _, doc := range app.Documents {
		_, err = tx.ExecContext(ctx, docQuery, result.Id, doc.Key, doc.Name, doc.Filename, doc.Path, doc.Extra)
		if err != nil {
			return nil, wrapRollbackErr(tx, fmt.Errorf("repository.Repository.AddApplication: %w", err))
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.AddApplication: failed to commit transaction: %w", err)
	}

	return &result, nil
}

// ApplicationExists checks for a prior application on the offer with the same
// email, which the portal treats as a duplicate submission.
func (repo *Repository) ApplicationExists(ctx context.Context, offerId, email string) (bool, error) {
	row := repo.db.QueryRowContext(ctx,
		"SELECT id FROM applications WHERE offer_id = $1 AND lower(email) = lower($2) LIMIT 1",
		offerId, email)
	var dummy string
	err := row.Scan(&dummy)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	}
	return false, fmt.Errorf("repository.Repository.ApplicationExists: %w", err)
}

func (repo *Repository) CountApplications(ctx context.Context, offerId string) (int, error) {
	var count int
	row := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM applications WHERE offer_id = $1", offerId)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("repository.Repository.CountApplications: %w", err)
	}
	return count, nil
}

func (repo *Repository) ListApplications(ctx context.Context, offerId string) ([]*models.Application, error) {
	query := `
	SELECT
		a.id,
		a.offer_id,
		a.full_name,
		a.email,
		a.phone,
		a.archived_at,
		a.created_at,
		d.key,
		d.name,
		d.filename,
		d.path,
		d.extra
	FROM applications a
	LEFT JOIN application_documents d ON d.application_id = a.id
	WHERE a.offer_id = $1
	ORDER BY a.created_at, d.key
	`

	rows, err := repo.db.QueryContext(ctx, query, offerId)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.ListApplications: %w", err)
	}
	defer rows.Close()

	var result []*models.Application
	byId := make(map[string]*models.Application)
	for rows.Next() {
		var (
			app        models.Application
			archivedAt sql.NullTime
			key        sql.NullString
			name       sql.NullString
			filename   sql.NullString
			path       sql.NullString
			extra      sql.NullBool
		)
		err = rows.Scan(&app.Id, &app.OfferId, &app.FullName, &app.Email, &app.Phone,
			&archivedAt, &app.CreatedAt, &key, &name, &filename, &path, &extra)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.ListApplications: row scan failed: %w", err)
		}

		current, ok := byId[app.Id]
		if !ok {
			if archivedAt.Valid {
				t := archivedAt.Time
				app.ArchivedAt = &t
			}
			current = &app
			byId[app.Id] = current
			result = append(result, current)
		}
		if key.Valid {
			current.Documents = append(current.Documents, models.ApplicationDocument{
				Key:      key.String,
				Name:     name.String,
				Filename: filename.String,
				Path:     path.String,
				Extra:    extra.Bool,
			})
		}
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.ListApplications: %w", rows.Err())
	}

	return result, nil
}

// MarkApplicationsArchived stamps applications that have not been archived
// before and returns how many rows this run touched.
func (repo *Repository) MarkApplicationsArchived(ctx context.Context, offerId string, at time.Time) (int, error) {
	query := `
	UPDATE applications
	SET archived_at = $1
	WHERE offer_id = $2 AND archived_at IS NULL
	`

	res, err := repo.db.ExecContext(ctx, query, at, offerId)
	if err != nil {
		return 0, fmt.Errorf("repository.Repository.MarkApplicationsArchived: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository.Repository.MarkApplicationsArchived: %w", err)
	}
	return int(n), nil
}
