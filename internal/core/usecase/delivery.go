package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/core/report"
	"github.com/kirillkom/catman-audit/internal/core/scoring"
)

const pdfContentType = "application/pdf"

type DeliveryOptions struct {
	Recipient string
	Cache     ports.ReportCache
	Archive   ports.ObjectStorage
	Queue     ports.ReportQueue
	Now       func() time.Time
}

type DeliveryUseCase struct {
	repo      ports.AuditRepository
	catalog   *catalog.Catalog
	assembler *report.Assembler
	comments  *CommentBuffer
	renderer  ports.Renderer
	mailer    ports.Mailer
	recipient string
	cache     ports.ReportCache
	archive   ports.ObjectStorage
	queue     ports.ReportQueue
	now       func() time.Time
	markdown  goldmark.Markdown
}

func NewDeliveryUseCase(
	repo ports.AuditRepository,
	c *catalog.Catalog,
	comments *CommentBuffer,
	renderer ports.Renderer,
	mailer ports.Mailer,
	options DeliveryOptions,
) *DeliveryUseCase {
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DeliveryUseCase{
		repo:      repo,
		catalog:   c,
		assembler: report.NewAssembler(c).WithClock(now),
		comments:  comments,
		renderer:  renderer,
		mailer:    mailer,
		recipient: options.Recipient,
		cache:     options.Cache,
		archive:   options.Archive,
		queue:     options.Queue,
		now:       now,
		markdown:  goldmark.New(),
	}
}

func (uc *DeliveryUseCase) Scorecard(ctx context.Context, id string) (scoring.Scorecard, error) {
	audit, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return scoring.Scorecard{}, err
	}
	if uc.comments != nil {
		uc.comments.Overlay(audit)
	}
	return scoring.Compute(audit, uc.catalog), nil
}

func (uc *DeliveryUseCase) Document(ctx context.Context, id string) (domain.ReportDocument, error) {
	audit, err := uc.load(ctx, id)
	if err != nil {
		return domain.ReportDocument{}, err
	}
	return uc.assembler.Assemble(audit), nil
}

// Render produces the PDF of an audit. Output is cached per audit version,
// so an unchanged audit is rendered once.
func (uc *DeliveryUseCase) Render(ctx context.Context, id string) (ports.RenderedReport, error) {
	audit, err := uc.load(ctx, id)
	if err != nil {
		return ports.RenderedReport{}, err
	}
	return uc.render(ctx, audit)
}

// Send mails the report to the fixed recipient. The audit is flagged as
// sent only once the mail server accepted the message; sending again is
// allowed.
func (uc *DeliveryUseCase) Send(ctx context.Context, id string) error {
	audit, err := uc.load(ctx, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(uc.recipient) == "" {
		return domain.WrapError(domain.ErrDelivery, "send report", fmt.Errorf("no recipient configured"))
	}

	rendered, err := uc.render(ctx, audit)
	if err != nil {
		return err
	}
	body, err := uc.mailBody(audit)
	if err != nil {
		return domain.WrapError(domain.ErrDelivery, "build mail body", err)
	}

	attachment := ports.Attachment{
		Filename:    rendered.Filename,
		ContentType: pdfContentType,
		Data:        rendered.PDF,
	}
	if err := uc.mailer.Send(ctx, uc.recipient, MailSubject(audit.StoreName), body, attachment); err != nil {
		if domain.IsKind(err, domain.ErrDelivery) {
			return err
		}
		return domain.WrapError(domain.ErrDelivery, "send report", err)
	}

	if err := uc.repo.MarkEmailSent(ctx, id); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	uc.archiveReport(ctx, id, rendered)

	slog.Info("report_sent", "audit_id", id, "store", audit.StoreName, "filename", rendered.Filename, "bytes", len(rendered.PDF))
	return nil
}

// RequestSend hands delivery to the worker when a queue is configured and
// sends inline otherwise. It reports whether the request was queued.
func (uc *DeliveryUseCase) RequestSend(ctx context.Context, id string) (bool, error) {
	if uc.queue == nil {
		return false, uc.Send(ctx, id)
	}
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return false, err
	}
	if uc.comments != nil {
		if err := uc.comments.Flush(ctx, id); err != nil {
			return false, fmt.Errorf("flush comments: %w", err)
		}
	}
	if err := uc.queue.PublishReportRequested(ctx, id); err != nil {
		return false, fmt.Errorf("publish report request: %w", err)
	}
	slog.Info("report_send_queued", "audit_id", id)
	return true, nil
}

// MailSubject is the subject line of a report mail.
func MailSubject(storeName string) string {
	return "Rapport d'audit - " + storeName
}

// ReportFilename names the PDF attachment after the store and the
// generation time in unix milliseconds.
func ReportFilename(storeName string, at time.Time) string {
	dashed := strings.Join(strings.Fields(storeName), "-")
	dashed = strings.NewReplacer("/", "-", "\\", "-").Replace(dashed)
	if dashed == "" {
		dashed = "magasin"
	}
	return fmt.Sprintf("audit-%s-%d.pdf", dashed, at.UnixMilli())
}

func (uc *DeliveryUseCase) load(ctx context.Context, id string) (*domain.Audit, error) {
	if uc.comments != nil {
		if err := uc.comments.Flush(ctx, id); err != nil {
			return nil, fmt.Errorf("flush comments: %w", err)
		}
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *DeliveryUseCase) render(ctx context.Context, audit *domain.Audit) (ports.RenderedReport, error) {
	filename := ReportFilename(audit.StoreName, uc.now())

	if uc.cache != nil {
		if pdf, ok := uc.cache.Get(audit.ID, audit.UpdatedAt); ok {
			return ports.RenderedReport{Filename: filename, PDF: pdf}, nil
		}
	}

	started := time.Now()
	pdf, err := uc.renderer.Render(ctx, uc.assembler.Assemble(audit))
	if err != nil {
		if domain.IsKind(err, domain.ErrRender) {
			return ports.RenderedReport{}, err
		}
		return ports.RenderedReport{}, domain.WrapError(domain.ErrRender, "render report", err)
	}
	slog.Debug("report_rendered", "audit_id", audit.ID, "bytes", len(pdf), "duration_ms", time.Since(started).Milliseconds())

	if uc.cache != nil {
		uc.cache.Put(audit.ID, audit.UpdatedAt, pdf)
	}
	return ports.RenderedReport{Filename: filename, PDF: pdf}, nil
}

func (uc *DeliveryUseCase) archiveReport(ctx context.Context, id string, rendered ports.RenderedReport) {
	if uc.archive == nil {
		return
	}
	key := id + "_" + rendered.Filename
	if err := uc.archive.Save(ctx, key, bytes.NewReader(rendered.PDF)); err != nil {
		slog.Warn("report_archive_failed", "audit_id", id, "key", key, "error", err)
	}
}

func (uc *DeliveryUseCase) mailBody(audit *domain.Audit) (string, error) {
	card := scoring.Compute(audit, uc.catalog)

	var md strings.Builder
	fmt.Fprintf(&md, "# Rapport d'audit - %s\n\n", escapeMarkdown(audit.StoreName))
	fmt.Fprintf(&md, "- **Auditeur** : %s\n", escapeMarkdown(audit.AuditorName))
	fmt.Fprintf(&md, "- **Type de magasin** : %s\n", audit.StoreType.Label())
	if audit.CategoryAnalyzed != "" {
		fmt.Fprintf(&md, "- **Catégorie analysée** : %s\n", escapeMarkdown(audit.CategoryAnalyzed))
	}
	fmt.Fprintf(&md, "- **Date** : %s\n", audit.CreatedAt.Format("02/01/2006"))
	fmt.Fprintf(&md, "- **Score global** : %d/%d\n\n", card.Score, card.Total)

	md.WriteString("## Scores par catégorie\n\n")
	for _, cs := range card.Categories {
		fmt.Fprintf(&md, "- **%s** : %d/%d", cs.Label, cs.Score, cs.Total)
		if cs.Narrative != "" {
			fmt.Fprintf(&md, " - %s", cs.Narrative)
		}
		md.WriteString("\n")
	}
	fmt.Fprintf(&md, "\n**Golden rules** : %d/%d\n\n", card.GoldenRules, card.GoldenRulesTotal)
	md.WriteString("Le rapport complet est joint au format PDF.\n")

	var out bytes.Buffer
	if err := uc.markdown.Convert([]byte(md.String()), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// CommonMark lets any ASCII punctuation be backslash-escaped.
const markdownPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escapeMarkdown makes auditor-entered text render literally inside one
// markdown line.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case strings.ContainsRune(markdownPunctuation, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
