package domain

import "time"

// ReportDocument is the rendering-independent tree of an audit report.
type ReportDocument struct {
	Header      ReportHeader      `json:"header"`
	Scorecards  []ReportScorecard `json:"scorecards"`
	Details     []ReportCategory  `json:"details"`
	GoldenRules ReportGoldenRules `json:"golden_rules"`
	Barriers    ReportBarriers    `json:"barriers"`
	Pharmacist  *ReportPharmacist `json:"pharmacist,omitempty"`
	Observation ReportObservation `json:"observation"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type ReportHeader struct {
	AuditID          string    `json:"audit_id"`
	StoreName        string    `json:"store_name"`
	StoreType        StoreType `json:"store_type"`
	StoreTypeLabel   string    `json:"store_type_label"`
	CategoryAnalyzed string    `json:"category_analyzed"`
	WeatherLabel     string    `json:"weather_label,omitempty"`
	AuditorName      string    `json:"auditor_name"`
	CreatedAt        time.Time `json:"created_at"`
	Score            int       `json:"score"`
	Total            int       `json:"total"`
}

type ReportScorecard struct {
	Category  CategoryKey `json:"category"`
	Label     string      `json:"label"`
	Score     int         `json:"score"`
	Total     int         `json:"total"`
	Band      Band        `json:"band"`
	Narrative string      `json:"narrative,omitempty"`
}

type ReportCategory struct {
	Category CategoryKey       `json:"category"`
	Label    string            `json:"label"`
	Criteria []ReportCriterion `json:"criteria"`
}

type ReportCriterion struct {
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	Question string     `json:"question"`
	Eval     Evaluation `json:"eval,omitempty"`
	Badge    string     `json:"badge"`
	Comment  string     `json:"comment,omitempty"`
	Photo    string     `json:"photo,omitempty"`
}

type ReportGoldenRules struct {
	Rules   []ReportGoldenRule `json:"rules"`
	Checked int                `json:"checked"`
	Total   int                `json:"total"`
}

type ReportGoldenRule struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

type ReportBarriers struct {
	Labels      []string `json:"labels"`
	Placeholder string   `json:"placeholder,omitempty"`
}

type ReportPharmacist struct {
	Helped bool   `json:"helped"`
	Text   string `json:"text"`
}

type ReportObservation struct {
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder"`
}

// Band is the verdict classification of a score ratio.
type Band string

const (
	BandStrong    Band = "strong"
	BandModerate  Band = "moderate"
	BandWeak      Band = "weak"
	BandUndefined Band = "undefined"
)
