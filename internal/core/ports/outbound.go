package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/catman-audit/internal/core/domain"
)

// AuditRepository persists the audit aggregate. Every write touches a single
// field and is atomic on its own; writes to unknown audits return
// domain.ErrAuditNotFound.
type AuditRepository interface {
	Create(ctx context.Context, audit *domain.Audit) error
	GetByID(ctx context.Context, id string) (*domain.Audit, error)
	List(ctx context.Context) ([]domain.AuditSummary, error)
	UpdateInfo(ctx context.Context, id string, patch domain.InfoPatch) error
	UpdateExpertise(ctx context.Context, id string, patch domain.ExpertisePatch) error
	SetStep(ctx context.Context, id string, step domain.Step) error
	MarkCompleted(ctx context.Context, id string) error
	MarkEmailSent(ctx context.Context, id string) error
	UpdateCriterionField(ctx context.Context, id string, category domain.CategoryKey, key string, field domain.CriterionField, value string) error
	SetGoldenRule(ctx context.Context, id string, key string, value bool) error
	Delete(ctx context.Context, id string) error
}

// PhotoUpload is an image submitted for a criterion.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Uploader stores an image and returns its public URL. Each call yields a
// fresh, independent URL.
type Uploader interface {
	Upload(ctx context.Context, photo PhotoUpload) (string, error)
}

// Attachment is a binary file joined to an outgoing mail.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer sends one message to one recipient.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, htmlBody string, attachment Attachment) error
}

// Renderer turns a report document into a binary (PDF bytes).
type Renderer interface {
	Render(ctx context.Context, doc domain.ReportDocument) ([]byte, error)
}

// ObjectStorage stores rendered reports.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ReportQueue publishes/consumes report delivery requests.
type ReportQueue interface {
	PublishReportRequested(ctx context.Context, auditID string) error
	SubscribeReportRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ReportCache keeps rendered reports for unchanged audits.
type ReportCache interface {
	Get(auditID string, version time.Time) ([]byte, bool)
	Put(auditID string, version time.Time, pdf []byte)
	Invalidate(auditID string)
}

// SpreadsheetExporter writes audit rows into a workbook.
type SpreadsheetExporter interface {
	Export(w io.Writer, rows []domain.ExportRow) error
}

// EditRecorder observes editor and wizard activity.
type EditRecorder interface {
	RecordTransition(kind string)
	RecordFieldWrite(field string)
}
