// Package scoring turns audit answers into scores and verdicts.
//
// Every function is pure: the result depends only on the audit and the
// catalog passed in.
package scoring

import (
	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
)

// Thresholds bounds the moderate band: ratio >= High is strong, ratio >= Low
// is moderate, anything below is weak.
type Thresholds struct {
	Low  float64
	High float64
}

// DefaultThresholds is the global pair used when a category has no pair of
// its own.
var DefaultThresholds = Thresholds{Low: 0.4, High: 0.8}

var categoryThresholds = map[domain.CategoryKey]Thresholds{
	domain.CategorySeeIt:    {Low: 0.4, High: 0.8},
	domain.CategoryFindIt:   {Low: 0.25, High: 0.75},
	domain.CategoryChooseIt: {Low: 0.4, High: 0.8},
	domain.CategoryBuyIt:    {Low: 0.4, High: 0.8},
}

// ThresholdsFor returns the band bounds of a category.
func ThresholdsFor(category domain.CategoryKey) Thresholds {
	if t, ok := categoryThresholds[category]; ok {
		return t
	}
	return DefaultThresholds
}

func (t Thresholds) Band(score, total int) domain.Band {
	if total <= 0 {
		return domain.BandUndefined
	}
	ratio := float64(score) / float64(total)
	switch {
	case ratio >= t.High:
		return domain.BandStrong
	case ratio >= t.Low:
		return domain.BandModerate
	default:
		return domain.BandWeak
	}
}

// Band classifies a ratio with the global 0.4/0.8 pair.
func Band(score, total int) domain.Band {
	return DefaultThresholds.Band(score, total)
}

// VerdictBand classifies a category score with that category's thresholds.
func VerdictBand(category domain.CategoryKey, score, total int) domain.Band {
	return ThresholdsFor(category).Band(score, total)
}

// SectionScore counts the OUI answers of a section. NON, PARTIEL and unset
// answers are not counted; keys absent from the catalog are ignored.
func SectionScore(section domain.CategorySection, category catalog.Category) int {
	score := 0
	for _, criterion := range category.Criteria {
		if section.Get(criterion.Key).Eval == domain.EvalOui {
			score++
		}
	}
	return score
}

func SectionTotal(category catalog.Category) int {
	return len(category.Criteria)
}

type CategoryScore struct {
	Category  domain.CategoryKey `json:"category"`
	Label     string             `json:"label"`
	Score     int                `json:"score"`
	Total     int                `json:"total"`
	Band      domain.Band        `json:"band"`
	Narrative string             `json:"narrative"`
}

type Scorecard struct {
	Categories       []CategoryScore `json:"categories"`
	Score            int             `json:"score"`
	Total            int             `json:"total"`
	Ratio            float64         `json:"ratio"`
	GoldenRules      int             `json:"golden_rules"`
	GoldenRulesTotal int             `json:"golden_rules_total"`
	Barriers         []string        `json:"barriers"`
}

// Compute scores every category of the audit in catalog order.
func Compute(audit *domain.Audit, c *catalog.Catalog) Scorecard {
	card := Scorecard{
		Categories: make([]CategoryScore, 0, len(c.Categories)),
	}
	for _, category := range c.Categories {
		score := SectionScore(audit.Section(category.Key), category)
		total := SectionTotal(category)
		band := VerdictBand(category.Key, score, total)

		card.Categories = append(card.Categories, CategoryScore{
			Category:  category.Key,
			Label:     category.Label,
			Score:     score,
			Total:     total,
			Band:      band,
			Narrative: Narrative(category.Key, band),
		})
		card.Score += score
		card.Total += total
	}
	card.Ratio = Ratio(card.Score, card.Total)
	card.GoldenRules = GoldenRulesScore(audit.GoldenRules, c)
	card.GoldenRulesTotal = len(c.GoldenRules)
	card.Barriers = BarrierLabels(audit.Barriers, c)
	return card
}

// Ratio is score/total, or zero when total is zero.
func Ratio(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total)
}

// GoldenRulesScore counts the checked rules that exist in the catalog.
func GoldenRulesScore(rules map[string]bool, c *catalog.Catalog) int {
	checked := 0
	for _, rule := range c.GoldenRules {
		if rules[rule.Key] {
			checked++
		}
	}
	return checked
}

// BarrierLabels resolves barrier keys to their labels. Unknown keys are
// shown as is.
func BarrierLabels(barriers []domain.Barrier, c *catalog.Catalog) []string {
	labels := make([]string, 0, len(barriers))
	for _, key := range barriers {
		if barrier, ok := c.Barrier(key); ok {
			labels = append(labels, barrier.Label)
			continue
		}
		labels = append(labels, string(key))
	}
	return labels
}
