package models

import "time"

// Question is a visitor question on an offer, optionally answered by the
// offer's owner. Answered questions form the offer's public FAQ.
type Question struct {
	Id         string     `json:"id"`
	OfferId    string     `json:"offerId"`
	AuthorName string     `json:"authorName"`
	Email      string     `json:"-"`
	Text       string     `json:"text"`
	Answer     *string    `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (q *Question) Answered() bool { return q.Answer != nil }
