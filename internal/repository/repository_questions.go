package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"offerportal/internal/models"
)

const questionColumns = `
	id,
	offer_id,
	author_name,
	email,
	question,
	answer,
	answered_at,
	created_at`

func scanQuestion(row interface{ Scan(...interface{}) error }) (*models.Question, error) {
	var q models.Question
	var answer sql.NullString
	var answeredAt sql.NullTime

	err := row.Scan(&q.Id, &q.OfferId, &q.AuthorName, &q.Email, &q.Text,
		&answer, &answeredAt, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if answer.Valid {
		q.Answer = &answer.String
	}
	if answeredAt.Valid {
		t := answeredAt.Time
		q.AnsweredAt = &t
	}
	return &q, nil
}

func (repo *Repository) AddQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	query := `
	INSERT INTO questions
		(offer_id, author_name, email, question)
	VALUES
		($1, $2, $3, $4)
	RETURNING
		id, created_at
	`

	result := *q
	row := repo.db.QueryRowContext(ctx, query, q.OfferId, q.AuthorName, q.Email, q.Text)
	err := row.Scan(&result.Id, &result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.AddQuestion: %w", err)
	}
	return &result, nil
}

func (repo *Repository) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	query := `
	SELECT ` + questionColumns + `
	FROM questions
	WHERE id = $1
	`
	q, err := scanQuestion(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoQuestion
	} else if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetQuestion: %w", err)
	}
	return q, nil
}

// GetQuestions lists an offer's questions, oldest first. With answeredOnly
// set, unanswered questions are filtered out, which is the public FAQ view.
func (repo *Repository) GetQuestions(ctx context.Context, offerId string, answeredOnly bool) ([]*models.Question, error) {
	query := `
	SELECT ` + questionColumns + `
	FROM questions
	WHERE offer_id = $1 AND ($2 = false OR answer IS NOT NULL)
	ORDER BY created_at
	`

	rows, err := repo.db.QueryContext(ctx, query, offerId, answeredOnly)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetQuestions: %w", err)
	}
	defer rows.Close()

	var result []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetQuestions: row scan failed: %w", err)
		}
		result = append(result, q)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.GetQuestions: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) AnswerQuestion(ctx context.Context, id, answer string) (bool, error) {
	query := `
	UPDATE questions
	SET answer = $1, answered_at = CURRENT_TIMESTAMP
	WHERE id = $2
	`

	res, err := repo.db.ExecContext(ctx, query, answer, id)
	if err != nil {
		return false, fmt.Errorf("repository.Repository.AnswerQuestion: %w", err)
	}
	return rowsChanged(res)
}

func (repo *Repository) DeleteAnswer(ctx context.Context, id string) (bool, error) {
	query := `
	UPDATE questions
	SET answer = NULL, answered_at = NULL
	WHERE id = $1
	`

	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("repository.Repository.DeleteAnswer: %w", err)
	}
	return rowsChanged(res)
}
