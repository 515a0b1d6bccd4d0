package domain

import "time"

type AuditStatus string

const (
	StatusDraft     AuditStatus = "DRAFT"
	StatusCompleted AuditStatus = "COMPLETED"
)

type StoreType string

const (
	StorePharmacie StoreType = "PHARMACIE"
	StoreGMS       StoreType = "GMS"
)

func (t StoreType) Valid() bool {
	return t == StorePharmacie || t == StoreGMS
}

func (t StoreType) Label() string {
	switch t {
	case StorePharmacie:
		return "Pharmacie"
	case StoreGMS:
		return "GMS"
	default:
		return string(t)
	}
}

type Weather string

const (
	WeatherCalme     Weather = "CALME"
	WeatherAffluente Weather = "AFFLUENTE"
	WeatherSaturee   Weather = "SATUREE"
)

func (w Weather) Valid() bool {
	switch w {
	case WeatherCalme, WeatherAffluente, WeatherSaturee:
		return true
	default:
		return false
	}
}

func (w Weather) Label() string {
	switch w {
	case WeatherCalme:
		return "Calme"
	case WeatherAffluente:
		return "Affluente"
	case WeatherSaturee:
		return "Saturée"
	default:
		return string(w)
	}
}

// Evaluation is the tri-state answer of a criterion. The zero value means
// the criterion has not been evaluated.
type Evaluation string

const (
	EvalUnset   Evaluation = ""
	EvalOui     Evaluation = "OUI"
	EvalNon     Evaluation = "NON"
	EvalPartiel Evaluation = "PARTIEL"
)

func (e Evaluation) Valid() bool {
	switch e {
	case EvalUnset, EvalOui, EvalNon, EvalPartiel:
		return true
	default:
		return false
	}
}

// Toggle resolves a selection against the current value: selecting the
// active value clears it, anything else replaces it.
func (e Evaluation) Toggle(selected Evaluation) Evaluation {
	if selected == e {
		return EvalUnset
	}
	return selected
}

type CategoryKey string

const (
	CategorySeeIt    CategoryKey = "seeIt"
	CategoryFindIt   CategoryKey = "findIt"
	CategoryChooseIt CategoryKey = "chooseIt"
	CategoryBuyIt    CategoryKey = "buyIt"
)

// Categories lists the audit dimensions in wizard order.
var Categories = []CategoryKey{CategorySeeIt, CategoryFindIt, CategoryChooseIt, CategoryBuyIt}

type Barrier string

// CriterionField names one of the three per-criterion fields.
type CriterionField string

const (
	FieldEval    CriterionField = "eval"
	FieldComment CriterionField = "comment"
	FieldPhoto   CriterionField = "photo"
)

func (f CriterionField) Valid() bool {
	return f == FieldEval || f == FieldComment || f == FieldPhoto
}

// Criterion holds the answer to one rubric item. Empty strings stand for null.
type Criterion struct {
	Eval    Evaluation `json:"eval,omitempty"`
	Comment string     `json:"comment,omitempty"`
	Photo   string     `json:"photo,omitempty"`
}

func (c Criterion) With(field CriterionField, value string) Criterion {
	switch field {
	case FieldEval:
		c.Eval = Evaluation(value)
	case FieldComment:
		c.Comment = value
	case FieldPhoto:
		c.Photo = value
	}
	return c
}

type CategorySection struct {
	Category CategoryKey          `json:"category"`
	Criteria map[string]Criterion `json:"criteria"`
}

// NewCategorySection creates an empty section holding one unset criterion
// per key.
func NewCategorySection(category CategoryKey, keys []string) CategorySection {
	criteria := make(map[string]Criterion, len(keys))
	for _, key := range keys {
		criteria[key] = Criterion{}
	}
	return CategorySection{Category: category, Criteria: criteria}
}

func (s CategorySection) Get(key string) Criterion {
	if s.Criteria == nil {
		return Criterion{}
	}
	return s.Criteria[key]
}

type Audit struct {
	ID          string      `json:"id"`
	Status      AuditStatus `json:"status"`
	CurrentStep Step        `json:"current_step"`

	AuditorName string    `json:"auditor_name"`
	StoreName   string    `json:"store_name"`
	StoreType   StoreType `json:"store_type"`

	CategoryAnalyzed string  `json:"category_analyzed,omitempty"`
	Weather          Weather `json:"weather,omitempty"`

	Sections    map[CategoryKey]CategorySection `json:"sections"`
	GoldenRules map[string]bool                 `json:"golden_rules"`

	Barriers         []Barrier `json:"barriers"`
	MainObservation  string    `json:"main_observation,omitempty"`
	PharmacistHelped *bool     `json:"pharmacist_helped,omitempty"`

	EmailSent bool      `json:"email_sent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Audit) Section(category CategoryKey) CategorySection {
	if section, ok := a.Sections[category]; ok {
		return section
	}
	return CategorySection{Category: category}
}

func (a *Audit) Completed() bool {
	return a.Status == StatusCompleted
}

type AuditSummary struct {
	ID          string      `json:"id"`
	Status      AuditStatus `json:"status"`
	AuditorName string      `json:"auditor_name"`
	StoreName   string      `json:"store_name"`
	StoreType   StoreType   `json:"store_type"`
	CurrentStep Step        `json:"current_step"`
	EmailSent   bool        `json:"email_sent"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// InfoPatch updates the step-0 context fields. Nil pointers are left as is.
type InfoPatch struct {
	CategoryAnalyzed *string  `json:"category_analyzed,omitempty"`
	Weather          *Weather `json:"weather,omitempty"`
}

func (p InfoPatch) Empty() bool {
	return p.CategoryAnalyzed == nil && p.Weather == nil
}

// ExpertisePatch updates the expertise step fields. Nil pointers are left as is.
type ExpertisePatch struct {
	Barriers         *[]Barrier `json:"barriers,omitempty"`
	MainObservation  *string    `json:"main_observation,omitempty"`
	PharmacistHelped *bool      `json:"pharmacist_helped,omitempty"`
}

func (p ExpertisePatch) Empty() bool {
	return p.Barriers == nil && p.MainObservation == nil && p.PharmacistHelped == nil
}
