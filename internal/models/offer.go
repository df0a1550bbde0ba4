package models

import (
	"sort"
	"time"
)

type OfferStatus string

const (
	OfferActive          OfferStatus = "active"
	OfferUnderEvaluation OfferStatus = "under_evaluation"
	OfferResult          OfferStatus = "result"
	OfferUnsuccessful    OfferStatus = "unsuccessful"
)

func ValidOfferStatus(s OfferStatus) bool {
	switch s {
	case OfferActive, OfferUnderEvaluation, OfferResult, OfferUnsuccessful:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further status transition is permitted.
func (s OfferStatus) Terminal() bool {
	return s == OfferResult || s == OfferUnsuccessful
}

type OfferType string

const (
	TypeWorks                OfferType = "works"
	TypeIntellectualService  OfferType = "intellectual_service"
	TypeRecruitment          OfferType = "recruitment"
	TypeService              OfferType = "service"
	TypeConsultation         OfferType = "consultation"
	TypeTenderCall           OfferType = "tender_call"
	TypeEquipmentCall        OfferType = "equipment_call"
	TypeExpressionOfInterest OfferType = "expression_of_interest"
)

func ValidOfferType(t OfferType) bool {
	switch t {
	case TypeWorks, TypeIntellectualService, TypeRecruitment, TypeService,
		TypeConsultation, TypeTenderCall, TypeEquipmentCall, TypeExpressionOfInterest:
		return true
	default:
		return false
	}
}

type OfferMethod string

const (
	MethodDirectAgreement OfferMethod = "direct_agreement"
	MethodConsultation    OfferMethod = "consultation"
	MethodTenderCall      OfferMethod = "tender_call"
)

func ValidOfferMethod(m OfferMethod) bool {
	switch m {
	case MethodDirectAgreement, MethodConsultation, MethodTenderCall:
		return true
	default:
		return false
	}
}

// MaxRecipients caps the extra notification addresses stored per offer. The
// creator's address is resolved at dispatch time and does not count against it.
const MaxRecipients = 10

// CustomDocument is an offer-specific document requirement. Key is unique
// within its offer; Required governing whether applicants must supply it is
// independent of the default requirement set.
type CustomDocument struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

type Offer struct {
	Id              string           `json:"id"`
	Type            OfferType        `json:"type"`
	Method          OfferMethod      `json:"method"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Country         string           `json:"country"`
	Reference       string           `json:"reference"`
	CreatorName     string           `json:"createdByName"`
	CreatorEmail    string           `json:"-"`
	Deadline        time.Time        `json:"deadline"`
	Status          OfferStatus      `json:"status"`
	WinnerName      *string          `json:"winnerName,omitempty"`
	ClosedAt        *time.Time       `json:"closedAt,omitempty"`
	ArchiveClosesAt *time.Time       `json:"archiveClosesAt,omitempty"`
	Ledger          ThresholdSet     `json:"-"`
	Recipients      []string         `json:"-"`
	RemovedDefaults DocumentKeySet   `json:"removedDefaultDocuments"`
	CustomDocuments []CustomDocument `json:"customRequiredDocuments"`
	TermsFilename   string           `json:"termsFilename,omitempty"`
	TermsPath       string           `json:"-"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"-"`
}

// DocumentKeySet holds document keys opted out of the default requirement set.
type DocumentKeySet map[string]bool

func NewDocumentKeySet(keys ...string) DocumentKeySet {
	set := make(DocumentKeySet, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func (s DocumentKeySet) Has(key string) bool { return s[key] }

// Keys returns the members in insertion-independent sorted order.
func (s DocumentKeySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
