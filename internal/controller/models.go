package controller

import (
	"encoding/json"
	"fmt"
	"time"

	"offerportal/internal/models"
)

// New offer request

type NewOfferReq struct {
	Type            string                  `json:"type"`
	Method          string                  `json:"method"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	Country         string                  `json:"country"`
	Reference       string                  `json:"reference"`
	CreatorName     string                  `json:"createdByName"`
	CreatorEmail    string                  `json:"creatorEmail"`
	Deadline        time.Time               `json:"deadline"`
	Recipients      []string                `json:"notificationRecipients"`
	RemovedDefaults []string                `json:"removedDefaultDocuments"`
	CustomDocuments []models.CustomDocument `json:"customRequiredDocuments"`
}

func ParseNewOfferReq(data []byte) (*NewOfferReq, error) {
	t := &NewOfferReq{}

	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}

	if !models.ValidOfferType(models.OfferType(t.Type)) {
		return nil, fmt.Errorf("invalid offer type supplied: %s", t.Type)
	}
	if !models.ValidOfferMethod(models.OfferMethod(t.Method)) {
		return nil, fmt.Errorf("invalid offer method supplied: %s", t.Method)
	}
	if t.Deadline.IsZero() {
		return nil, fmt.Errorf("deadline is required")
	}

	if err = checkLengthLimit(t.Title, "title", 200); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(t.Reference, "reference", 100); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(t.Description, "description", 5000); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *NewOfferReq) ToOffer() *models.Offer {
	return &models.Offer{
		Type:            models.OfferType(t.Type),
		Method:          models.OfferMethod(t.Method),
		Title:           t.Title,
		Description:     t.Description,
		Country:         t.Country,
		Reference:       t.Reference,
		CreatorName:     t.CreatorName,
		CreatorEmail:    t.CreatorEmail,
		Deadline:        t.Deadline,
		Recipients:      t.Recipients,
		RemovedDefaults: models.NewDocumentKeySet(t.RemovedDefaults...),
		CustomDocuments: t.CustomDocuments,
	}
}

// Edit offer request. Only the fields present in the payload change.

type EditOfferReq struct {
	Title           *string                  `json:"title"`
	Description     *string                  `json:"description"`
	Country         *string                  `json:"country"`
	Deadline        *time.Time               `json:"deadline"`
	Recipients      *[]string                `json:"notificationRecipients"`
	RemovedDefaults *[]string                `json:"removedDefaultDocuments"`
	CustomDocuments *[]models.CustomDocument `json:"customRequiredDocuments"`
}

func ParseEditOfferReq(data []byte) (*EditOfferReq, error) {
	t := &EditOfferReq{}

	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}

	if t.Title != nil {
		if err = checkLengthLimit(*t.Title, "title", 200); err != nil {
			return nil, err
		}
	}
	if t.Description != nil {
		if err = checkLengthLimit(*t.Description, "description", 5000); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// ApplyTo copies the present fields onto the offer.
func (t *EditOfferReq) ApplyTo(offer *models.Offer) {
	if t.Title != nil {
		offer.Title = *t.Title
	}
	if t.Description != nil {
		offer.Description = *t.Description
	}
	if t.Country != nil {
		offer.Country = *t.Country
	}
	if t.Deadline != nil {
		offer.Deadline = *t.Deadline
	}
	if t.Recipients != nil {
		offer.Recipients = *t.Recipients
	}
	if t.RemovedDefaults != nil {
		offer.RemovedDefaults = models.NewDocumentKeySet(*t.RemovedDefaults...)
	}
	if t.CustomDocuments != nil {
		offer.CustomDocuments = *t.CustomDocuments
	}
}

// Winner request

type WinnerReq struct {
	WinnerName string `json:"winnerName"`
}

func ParseWinnerReq(data []byte) (*WinnerReq, error) {
	t := &WinnerReq{}

	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}
	if len(t.WinnerName) == 0 {
		return nil, fmt.Errorf("empty winnerName supplied")
	}
	if err = checkLengthLimit(t.WinnerName, "winnerName", 200); err != nil {
		return nil, err
	}

	return t, nil
}

// New question request

type NewQuestionReq struct {
	AuthorName string `json:"authorName"`
	Email      string `json:"email"`
	Text       string `json:"text"`
}

func ParseNewQuestionReq(data []byte) (*NewQuestionReq, error) {
	t := &NewQuestionReq{}

	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}
	if err = checkLengthLimit(t.AuthorName, "authorName", 200); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(t.Text, "text", 2000); err != nil {
		return nil, err
	}

	return t, nil
}

// Answer request

type AnswerReq struct {
	Answer string `json:"answer"`
}

func ParseAnswerReq(data []byte) (*AnswerReq, error) {
	t := &AnswerReq{}

	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}
	if err = checkLengthLimit(t.Answer, "answer", 5000); err != nil {
		return nil, err
	}

	return t, nil
}

// Service

func checkLengthLimit(str, fieldName string, limit int) error {
	if len(str) > limit {
		return fmt.Errorf("field '%s' exceeds length limit: %d / %d", fieldName, len(str), limit)
	}
	return nil
}
