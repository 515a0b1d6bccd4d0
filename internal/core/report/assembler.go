// Package report assembles the rendering-independent document of an audit.
package report

import (
	"time"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/scoring"
)

const (
	NoBarriersPlaceholder    = "Aucune barrière identifiée"
	NoObservationPlaceholder = "Aucune observation"
	NoCategoryPlaceholder    = "Non spécifiée"
	UnsetBadge               = "-"
)

type Assembler struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewAssembler(c *catalog.Catalog) *Assembler {
	return &Assembler{
		catalog: c,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the generation timestamp source.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Assemble builds the report tree. Every catalog criterion appears exactly
// once per category, in catalog order, whether or not it was answered.
func (a *Assembler) Assemble(audit *domain.Audit) domain.ReportDocument {
	card := scoring.Compute(audit, a.catalog)

	doc := domain.ReportDocument{
		Header:      a.header(audit, card),
		Scorecards:  make([]domain.ReportScorecard, 0, len(card.Categories)),
		Details:     make([]domain.ReportCategory, 0, len(a.catalog.Categories)),
		GoldenRules: a.goldenRules(audit),
		Barriers:    a.barriers(audit),
		Pharmacist:  pharmacist(audit),
		Observation: observation(audit),
		GeneratedAt: a.now(),
	}

	for _, cs := range card.Categories {
		doc.Scorecards = append(doc.Scorecards, domain.ReportScorecard{
			Category:  cs.Category,
			Label:     cs.Label,
			Score:     cs.Score,
			Total:     cs.Total,
			Band:      cs.Band,
			Narrative: cs.Narrative,
		})
	}

	for _, category := range a.catalog.Categories {
		section := audit.Section(category.Key)
		details := domain.ReportCategory{
			Category: category.Key,
			Label:    category.Label,
			Criteria: make([]domain.ReportCriterion, 0, len(category.Criteria)),
		}
		for _, criterion := range category.Criteria {
			answer := section.Get(criterion.Key)
			details.Criteria = append(details.Criteria, domain.ReportCriterion{
				Key:      criterion.Key,
				Label:    criterion.Label,
				Question: criterion.Question,
				Eval:     answer.Eval,
				Badge:    Badge(answer.Eval),
				Comment:  answer.Comment,
				Photo:    answer.Photo,
			})
		}
		doc.Details = append(doc.Details, details)
	}

	return doc
}

// Badge is the visual state of an evaluation.
func Badge(eval domain.Evaluation) string {
	if eval == domain.EvalUnset {
		return UnsetBadge
	}
	return string(eval)
}

func (a *Assembler) header(audit *domain.Audit, card scoring.Scorecard) domain.ReportHeader {
	category := audit.CategoryAnalyzed
	if category == "" {
		category = NoCategoryPlaceholder
	}
	h := domain.ReportHeader{
		AuditID:          audit.ID,
		StoreName:        audit.StoreName,
		StoreType:        audit.StoreType,
		StoreTypeLabel:   audit.StoreType.Label(),
		CategoryAnalyzed: category,
		AuditorName:      audit.AuditorName,
		CreatedAt:        audit.CreatedAt,
		Score:            card.Score,
		Total:            card.Total,
	}
	if audit.Weather != "" {
		h.WeatherLabel = audit.Weather.Label()
	}
	return h
}

func (a *Assembler) goldenRules(audit *domain.Audit) domain.ReportGoldenRules {
	block := domain.ReportGoldenRules{
		Rules: make([]domain.ReportGoldenRule, 0, len(a.catalog.GoldenRules)),
		Total: len(a.catalog.GoldenRules),
	}
	for _, rule := range a.catalog.GoldenRules {
		checked := audit.GoldenRules[rule.Key]
		if checked {
			block.Checked++
		}
		block.Rules = append(block.Rules, domain.ReportGoldenRule{
			Key:     rule.Key,
			Label:   rule.Label,
			Checked: checked,
		})
	}
	return block
}

func (a *Assembler) barriers(audit *domain.Audit) domain.ReportBarriers {
	labels := scoring.BarrierLabels(audit.Barriers, a.catalog)
	if len(labels) == 0 {
		return domain.ReportBarriers{Labels: []string{}, Placeholder: NoBarriersPlaceholder}
	}
	return domain.ReportBarriers{Labels: labels}
}

func pharmacist(audit *domain.Audit) *domain.ReportPharmacist {
	if audit.StoreType != domain.StorePharmacie || audit.PharmacistHelped == nil {
		return nil
	}
	text := "N'a pas conseillé"
	if *audit.PharmacistHelped {
		text = "A conseillé"
	}
	return &domain.ReportPharmacist{Helped: *audit.PharmacistHelped, Text: text}
}

func observation(audit *domain.Audit) domain.ReportObservation {
	if audit.MainObservation == "" {
		return domain.ReportObservation{Text: NoObservationPlaceholder, Placeholder: true}
	}
	return domain.ReportObservation{Text: audit.MainObservation}
}
