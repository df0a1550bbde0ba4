package models

import "time"

// ApplicationDocument is one uploaded file attached to an application. Key is
// the requirement slot it fills, either a default key, a custom document key
// or an applicant-chosen key for extra files.
type ApplicationDocument struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Path     string `json:"-"`
	Extra    bool   `json:"extra"`
}

type Application struct {
	Id         string                `json:"id"`
	OfferId    string                `json:"offerId"`
	FullName   string                `json:"fullName"`
	Email      string                `json:"email"`
	Phone      string                `json:"phone"`
	Documents  []ApplicationDocument `json:"documents"`
	ArchivedAt *time.Time            `json:"archivedAt,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// Document returns the document filling the given requirement slot, or nil.
func (a *Application) Document(key string) *ApplicationDocument {
	for i := range a.Documents {
		if a.Documents[i].Key == key && !a.Documents[i].Extra {
			return &a.Documents[i]
		}
	}
	return nil
}
