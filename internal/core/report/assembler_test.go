package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func newAudit(c *catalog.Catalog, storeType domain.StoreType) *domain.Audit {
	return &domain.Audit{
		ID:          "audit-1",
		Status:      domain.StatusCompleted,
		CurrentStep: domain.LastStep,
		AuditorName: "Jean",
		StoreName:   "Pharmacie du Centre",
		StoreType:   storeType,
		Sections:    c.NewSections(),
		GoldenRules: c.NewGoldenRules(),
		CreatedAt:   time.Date(2026, 3, 13, 8, 0, 0, 0, time.UTC),
	}
}

func TestAssembleEmitsEveryCriterionInCatalogOrder(t *testing.T) {
	c := catalog.MustDefault()
	a := newAudit(c, domain.StoreGMS)
	section := a.Sections[domain.CategoryChooseIt]
	section.Criteria["simplicity"] = domain.Criterion{Eval: domain.EvalOui, Comment: "RAS", Photo: "https://img/1.jpg"}
	a.Sections[domain.CategoryChooseIt] = section

	doc := NewAssembler(c).WithClock(fixedClock).Assemble(a)

	require.Len(t, doc.Details, len(c.Categories))
	for i, category := range c.Categories {
		details := doc.Details[i]
		assert.Equal(t, category.Key, details.Category)
		require.Len(t, details.Criteria, len(category.Criteria))
		for j, criterion := range category.Criteria {
			assert.Equal(t, criterion.Key, details.Criteria[j].Key)
		}
	}

	simplicity := doc.Details[2].Criteria[1]
	assert.Equal(t, "OUI", simplicity.Badge)
	assert.Equal(t, "RAS", simplicity.Comment)
	assert.Equal(t, "https://img/1.jpg", simplicity.Photo)
	assert.Equal(t, UnsetBadge, doc.Details[2].Criteria[0].Badge)
	assert.Equal(t, fixedClock(), doc.GeneratedAt)
}

func TestAssembleHeaderAndScorecards(t *testing.T) {
	c := catalog.MustDefault()
	a := newAudit(c, domain.StorePharmacie)
	a.CategoryAnalyzed = "Solaires"
	a.Weather = domain.WeatherSaturee
	section := a.Sections[domain.CategorySeeIt]
	for _, key := range []string{"visibility", "curves", "movement", "visualHierarchy"} {
		section.Criteria[key] = domain.Criterion{Eval: domain.EvalOui}
	}
	a.Sections[domain.CategorySeeIt] = section

	doc := NewAssembler(c).Assemble(a)

	assert.Equal(t, "Pharmacie du Centre", doc.Header.StoreName)
	assert.Equal(t, "Pharmacie", doc.Header.StoreTypeLabel)
	assert.Equal(t, "Solaires", doc.Header.CategoryAnalyzed)
	assert.Equal(t, "Saturée", doc.Header.WeatherLabel)
	assert.Equal(t, 4, doc.Header.Score)
	assert.Equal(t, 19, doc.Header.Total)

	require.Len(t, doc.Scorecards, 4)
	assert.Equal(t, domain.BandStrong, doc.Scorecards[0].Band)
	assert.Equal(t, domain.BandWeak, doc.Scorecards[1].Band)
	assert.NotEmpty(t, doc.Scorecards[0].Narrative)
}

func TestAssemblePlaceholders(t *testing.T) {
	c := catalog.MustDefault()
	a := newAudit(c, domain.StorePharmacie)

	doc := NewAssembler(c).Assemble(a)

	assert.Empty(t, doc.Barriers.Labels)
	assert.Equal(t, NoBarriersPlaceholder, doc.Barriers.Placeholder)
	assert.True(t, doc.Observation.Placeholder)
	assert.Equal(t, NoObservationPlaceholder, doc.Observation.Text)
	assert.Equal(t, NoCategoryPlaceholder, doc.Header.CategoryAnalyzed)
	assert.Nil(t, doc.Pharmacist, "pharmacist line needs a value")
	assert.Equal(t, 0, doc.GoldenRules.Checked)
	assert.Len(t, doc.GoldenRules.Rules, 10)
}

func TestAssemblePharmacistLineOnlyForPharmacies(t *testing.T) {
	c := catalog.MustDefault()
	helped := true

	pharmacy := newAudit(c, domain.StorePharmacie)
	pharmacy.PharmacistHelped = &helped
	doc := NewAssembler(c).Assemble(pharmacy)
	require.NotNil(t, doc.Pharmacist)
	assert.Equal(t, "A conseillé", doc.Pharmacist.Text)

	gms := newAudit(c, domain.StoreGMS)
	gms.PharmacistHelped = &helped
	assert.Nil(t, NewAssembler(c).Assemble(gms).Pharmacist)
}

func TestAssembleGoldenRulesAndBarriers(t *testing.T) {
	c := catalog.MustDefault()
	a := newAudit(c, domain.StoreGMS)
	a.GoldenRules["curves"] = true
	a.GoldenRules["effectiveCta"] = true
	a.Barriers = []domain.Barrier{"AWARENESS", "PERTINENCE"}
	a.MainObservation = "Rayon encombré"

	doc := NewAssembler(c).Assemble(a)

	assert.Equal(t, 2, doc.GoldenRules.Checked)
	assert.Equal(t, "visualHierarchy", doc.GoldenRules.Rules[0].Key)
	assert.True(t, doc.GoldenRules.Rules[4].Checked)
	assert.Equal(t, []string{"Awareness", "Pertinence"}, doc.Barriers.Labels)
	assert.Empty(t, doc.Barriers.Placeholder)
	assert.Equal(t, "Rayon encombré", doc.Observation.Text)
	assert.False(t, doc.Observation.Placeholder)
}
