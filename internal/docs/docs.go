// Package docs resolves the document requirements an applicant must satisfy
// for a given offer and validates submitted document sets against them.
package docs

import (
	"fmt"
	"path/filepath"
	"strings"

	"offerportal/internal/models"
)

// Requirement is one resolved document slot. Mandatory slots must carry an
// uploaded file for an application to be accepted.
type Requirement struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
	Custom    bool   `json:"custom"`
}

// Default document keys present for every offer type.
const (
	KeyCV          = "cv"
	KeyDiploma     = "diploma"
	KeyIDCard      = "id_card"
	KeyCoverLetter = "cover_letter"
)

// Conditional document keys added for specific offer types.
const (
	KeySwornDeclaration = "sworn_declaration"
	KeyReferenceForm    = "reference_form"
	KeyRegistryExtract  = "registry_extract"
	KeyMethodology      = "methodology_note"
	KeyReferenceList    = "reference_list"
	KeyFinancialOffer   = "financial_offer"
)

var baseSet = []Requirement{
	{Key: KeyCV, Name: "Curriculum vitae", Mandatory: true},
	{Key: KeyDiploma, Name: "Diploma", Mandatory: true},
	{Key: KeyIDCard, Name: "Identity card", Mandatory: true},
	{Key: KeyCoverLetter, Name: "Cover letter", Mandatory: true},
}

var formalTenderSet = []Requirement{
	{Key: KeySwornDeclaration, Name: "Sworn declaration", Mandatory: true},
	{Key: KeyReferenceForm, Name: "Reference form", Mandatory: true},
	{Key: KeyRegistryExtract, Name: "Trade registry extract", Mandatory: true},
	{Key: KeyMethodology, Name: "Methodology note", Mandatory: true},
	{Key: KeyReferenceList, Name: "List of similar references", Mandatory: true},
	{Key: KeyFinancialOffer, Name: "Financial offer", Mandatory: true},
}

// conditionalSets maps offer types to the requirement set appended after the
// base set. Types absent from the map contribute no conditional documents.
var conditionalSets = map[models.OfferType][]Requirement{
	models.TypeConsultation:         formalTenderSet,
	models.TypeTenderCall:           formalTenderSet,
	models.TypeEquipmentCall:        formalTenderSet,
	models.TypeExpressionOfInterest: formalTenderSet,
}

// Resolve computes the ordered requirement list for an offer: the base set,
// then the type's conditional set, minus the offer's removed defaults, plus
// its custom documents. Removal applies only to default slots, a custom
// document sharing a removed key still appears.
func Resolve(offer *models.Offer) []Requirement {
	defaults := make([]Requirement, 0, len(baseSet)+len(formalTenderSet))
	defaults = append(defaults, baseSet...)
	defaults = append(defaults, conditionalSets[offer.Type]...)

	out := make([]Requirement, 0, len(defaults)+len(offer.CustomDocuments))
	for _, req := range defaults {
		if offer.RemovedDefaults.Has(req.Key) {
			continue
		}
		out = append(out, req)
	}
	for _, doc := range offer.CustomDocuments {
		out = append(out, Requirement{
			Key:       doc.Key,
			Name:      doc.Name,
			Mandatory: doc.Required,
			Custom:    true,
		})
	}
	return out
}

// DefaultKeys lists the removable default keys for an offer type, used to
// validate removal requests at offer creation.
func DefaultKeys(typ models.OfferType) []string {
	keys := make([]string, 0, len(baseSet)+len(formalTenderSet))
	for _, req := range baseSet {
		keys = append(keys, req.Key)
	}
	for _, req := range conditionalSets[typ] {
		keys = append(keys, req.Key)
	}
	return keys
}

// ValidateSubmission checks submitted document keys against the offer's
// resolved requirements. Every file must be a PDF, every mandatory slot must
// be filled exactly once and no submission may fill an unknown non-extra slot.
func ValidateSubmission(offer *models.Offer, submitted []models.ApplicationDocument) error {
	resolved := Resolve(offer)
	known := make(map[string]bool, len(resolved))
	for _, req := range resolved {
		known[req.Key] = req.Mandatory
	}

	filled := make(map[string]bool, len(submitted))
	for _, doc := range submitted {
		if !strings.EqualFold(filepath.Ext(doc.Filename), ".pdf") {
			return &models.ValidationError{
				Field:  doc.Key,
				Reason: "only PDF files are accepted",
			}
		}
		if doc.Extra {
			continue
		}
		if _, ok := known[doc.Key]; !ok {
			return &models.ValidationError{
				Field:  doc.Key,
				Reason: "does not match any required document for this offer",
			}
		}
		if filled[doc.Key] {
			return &models.ValidationError{
				Field:  doc.Key,
				Reason: "submitted more than once",
			}
		}
		filled[doc.Key] = true
	}

	for _, req := range resolved {
		if req.Mandatory && !filled[req.Key] {
			return &models.ValidationError{
				Field:  req.Key,
				Reason: fmt.Sprintf("missing required document %q", req.Name),
			}
		}
	}
	return nil
}
