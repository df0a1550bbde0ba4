package docs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerportal/internal/models"
)

func keysOf(reqs []Requirement) []string {
	keys := make([]string, len(reqs))
	for i, r := range reqs {
		keys[i] = r.Key
	}
	return keys
}

func TestResolve(t *testing.T) {
	t.Run("base set only for recruitment", func(t *testing.T) {
		offer := &models.Offer{Type: models.TypeRecruitment}
		reqs := Resolve(offer)
		assert.Equal(t, []string{KeyCV, KeyDiploma, KeyIDCard, KeyCoverLetter}, keysOf(reqs))
		for _, r := range reqs {
			assert.True(t, r.Mandatory, r.Key)
			assert.False(t, r.Custom, r.Key)
		}
	})

	t.Run("conditional set appended for tender call", func(t *testing.T) {
		offer := &models.Offer{Type: models.TypeTenderCall}
		keys := keysOf(Resolve(offer))
		require.Len(t, keys, 10)
		assert.Equal(t, []string{KeyCV, KeyDiploma, KeyIDCard, KeyCoverLetter}, keys[:4])
		assert.Equal(t, []string{
			"sworn_declaration", "reference_form", "registry_extract",
			"methodology_note", "reference_list", "financial_offer",
		}, keys[4:])
	})

	t.Run("removed defaults are dropped", func(t *testing.T) {
		offer := &models.Offer{
			Type:            models.TypeConsultation,
			RemovedDefaults: models.NewDocumentKeySet(KeyDiploma, KeyMethodology),
		}
		keys := keysOf(Resolve(offer))
		assert.NotContains(t, keys, KeyDiploma)
		assert.NotContains(t, keys, KeyMethodology)
		assert.Contains(t, keys, KeyCV)
		assert.Contains(t, keys, KeyFinancialOffer)
	})

	t.Run("custom documents appended after defaults", func(t *testing.T) {
		offer := &models.Offer{
			Type: models.TypeWorks,
			CustomDocuments: []models.CustomDocument{
				{Key: "site_plan", Name: "Site plan", Required: true},
				{Key: "insurance", Name: "Insurance certificate", Required: false},
			},
		}
		reqs := Resolve(offer)
		require.Len(t, reqs, 6)
		assert.Equal(t, "site_plan", reqs[4].Key)
		assert.True(t, reqs[4].Mandatory)
		assert.True(t, reqs[4].Custom)
		assert.Equal(t, "insurance", reqs[5].Key)
		assert.False(t, reqs[5].Mandatory)
	})

	t.Run("custom document survives removal of same default key", func(t *testing.T) {
		offer := &models.Offer{
			Type:            models.TypeService,
			RemovedDefaults: models.NewDocumentKeySet(KeyCV),
			CustomDocuments: []models.CustomDocument{
				{Key: KeyCV, Name: "Resume, company format", Required: true},
			},
		}
		reqs := Resolve(offer)
		require.Len(t, reqs, 4)
		var cv *Requirement
		for i := range reqs {
			if reqs[i].Key == KeyCV {
				cv = &reqs[i]
			}
		}
		require.NotNil(t, cv)
		assert.True(t, cv.Custom)
		assert.Equal(t, "Resume, company format", cv.Name)
	})

	t.Run("resolution does not mutate the offer", func(t *testing.T) {
		offer := &models.Offer{
			Type:            models.TypeTenderCall,
			RemovedDefaults: models.NewDocumentKeySet(KeyIDCard),
		}
		first := keysOf(Resolve(offer))
		second := keysOf(Resolve(offer))
		assert.Equal(t, first, second)
	})
}

func TestValidateSubmission(t *testing.T) {
	offer := &models.Offer{
		Type:            models.TypeRecruitment,
		RemovedDefaults: models.NewDocumentKeySet(KeyDiploma),
		CustomDocuments: []models.CustomDocument{
			{Key: "portfolio", Name: "Portfolio", Required: false},
		},
	}

	docsFor := func(keys ...string) []models.ApplicationDocument {
		out := make([]models.ApplicationDocument, len(keys))
		for i, k := range keys {
			out[i] = models.ApplicationDocument{Key: k, Filename: k + ".pdf"}
		}
		return out
	}

	t.Run("complete submission accepted", func(t *testing.T) {
		err := ValidateSubmission(offer, docsFor(KeyCV, KeyIDCard, KeyCoverLetter))
		assert.NoError(t, err)
	})

	t.Run("optional custom slot may stay empty", func(t *testing.T) {
		err := ValidateSubmission(offer, docsFor(KeyCV, KeyIDCard, KeyCoverLetter))
		assert.NoError(t, err)
		err = ValidateSubmission(offer, docsFor(KeyCV, KeyIDCard, KeyCoverLetter, "portfolio"))
		assert.NoError(t, err)
	})

	t.Run("missing mandatory document rejected", func(t *testing.T) {
		err := ValidateSubmission(offer, docsFor(KeyCV, KeyIDCard))
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, KeyCoverLetter, verr.Field)
	})

	t.Run("removed default no longer expected", func(t *testing.T) {
		err := ValidateSubmission(offer, docsFor(KeyCV, KeyIDCard, KeyCoverLetter))
		assert.NoError(t, err)
	})

	t.Run("unknown slot rejected", func(t *testing.T) {
		err := ValidateSubmission(offer, docsFor(KeyCV, KeyIDCard, KeyCoverLetter, "budget"))
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "budget", verr.Field)
	})

	t.Run("duplicate slot rejected", func(t *testing.T) {
		err := ValidateSubmission(offer, docsFor(KeyCV, KeyCV, KeyIDCard, KeyCoverLetter))
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, KeyCV, verr.Field)
	})

	t.Run("extra files bypass slot matching", func(t *testing.T) {
		submitted := docsFor(KeyCV, KeyIDCard, KeyCoverLetter)
		submitted = append(submitted, models.ApplicationDocument{
			Key: "anything", Filename: "notes.pdf", Extra: true,
		})
		assert.NoError(t, ValidateSubmission(offer, submitted))
	})

	t.Run("non-pdf upload rejected", func(t *testing.T) {
		submitted := docsFor(KeyCV, KeyIDCard, KeyCoverLetter)
		submitted[0].Filename = "cv.docx"
		err := ValidateSubmission(offer, submitted)
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, KeyCV, verr.Field)
	})
}
