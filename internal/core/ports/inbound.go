package ports

import (
	"context"
	"io"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/scoring"
)

// CreateAuditInput carries the identification fields required at creation.
type CreateAuditInput struct {
	AuditorName string           `json:"auditor_name"`
	StoreName   string           `json:"store_name"`
	StoreType   domain.StoreType `json:"store_type"`
}

// AuditService is the inbound contract for audit lifecycle operations.
type AuditService interface {
	Create(ctx context.Context, in CreateAuditInput) (*domain.Audit, error)
	Get(ctx context.Context, id string) (*domain.Audit, error)
	List(ctx context.Context) ([]domain.AuditSummary, error)
	UpdateInfo(ctx context.Context, id string, patch domain.InfoPatch) error
	UpdateExpertise(ctx context.Context, id string, patch domain.ExpertisePatch) error
	Delete(ctx context.Context, id string) error
}

// WizardNavigator drives the step sequence of an audit.
type WizardNavigator interface {
	Advance(ctx context.Context, id string) (*domain.Audit, domain.Transition, error)
	Retreat(ctx context.Context, id string) (*domain.Audit, domain.Transition, error)
	SetStep(ctx context.Context, id string, step domain.Step) (*domain.Audit, error)
}

// EvaluationEditor captures per-criterion answers and checklist values.
type EvaluationEditor interface {
	ToggleEvaluation(ctx context.Context, id string, category domain.CategoryKey, key string, selected domain.Evaluation) (domain.Evaluation, error)
	SetComment(ctx context.Context, id string, category domain.CategoryKey, key, text string) error
	SetPhoto(ctx context.Context, id string, category domain.CategoryKey, key, url string) error
	ClearPhoto(ctx context.Context, id string, category domain.CategoryKey, key string) error
	UploadPhoto(ctx context.Context, id string, category domain.CategoryKey, key string, photo PhotoUpload) (string, error)
	SetGoldenRule(ctx context.Context, id, key string, value bool) error
	FlushComments(ctx context.Context, id string) error
}

// RenderedReport is a report ready to download or mail.
type RenderedReport struct {
	Filename string
	PDF      []byte
}

// ReportService computes, renders and delivers audit reports.
type ReportService interface {
	Scorecard(ctx context.Context, id string) (scoring.Scorecard, error)
	Document(ctx context.Context, id string) (domain.ReportDocument, error)
	Render(ctx context.Context, id string) (RenderedReport, error)
	Send(ctx context.Context, id string) error
	RequestSend(ctx context.Context, id string) (queued bool, err error)
}

// AuditExporter writes every audit into a spreadsheet.
type AuditExporter interface {
	ExportXLSX(ctx context.Context, w io.Writer) error
}
