package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/core/scoring"
)

type auditsStub struct {
	ports.AuditService
	summaries []domain.AuditSummary
	audit     *domain.Audit
}

func (s *auditsStub) List(context.Context) ([]domain.AuditSummary, error) {
	return s.summaries, nil
}

func (s *auditsStub) Get(_ context.Context, id string) (*domain.Audit, error) {
	if s.audit == nil || s.audit.ID != id {
		return nil, domain.WrapError(domain.ErrAuditNotFound, "get audit", errors.New("id="+id))
	}
	return s.audit, nil
}

type reportsStub struct {
	ports.ReportService
	sent    []string
	sendErr error
}

func (s *reportsStub) Scorecard(context.Context, string) (scoring.Scorecard, error) {
	return scoring.Scorecard{
		Categories: []scoring.CategoryScore{
			{Label: "SEE IT", Score: 5, Total: 5, Band: domain.BandStrong},
			{Label: "FIND IT", Score: 0, Total: 4, Band: domain.BandWeak},
		},
		Score: 5, Total: 9, Ratio: 5.0 / 9,
		GoldenRules: 3, GoldenRulesTotal: 10,
		Barriers: []string{"Prix"},
	}, nil
}

func (s *reportsStub) Render(context.Context, string) (ports.RenderedReport, error) {
	return ports.RenderedReport{Filename: "audit-Carrefour-1.pdf", PDF: []byte("%PDF-1.4")}, nil
}

func (s *reportsStub) Send(_ context.Context, id string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, id)
	return nil
}

type exporterStub struct{}

func (exporterStub) ExportXLSX(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("PK\x03\x04"))
	return err
}

type harness struct {
	audits   *auditsStub
	reports  *reportsStub
	opened   int
	closed   int
	migrated int
}

func newHarness() *harness {
	return &harness{
		audits: &auditsStub{
			audit: &domain.Audit{ID: "a-1", StoreName: "Carrefour", StoreType: domain.StoreGMS, AuditorName: "Léa", Status: domain.StatusDraft},
			summaries: []domain.AuditSummary{
				{ID: "a-2", StoreName: "Pharmacie du Port", StoreType: domain.StorePharmacie, Status: domain.StatusCompleted, EmailSent: true},
				{ID: "a-1", StoreName: "Carrefour", StoreType: domain.StoreGMS, Status: domain.StatusDraft},
			},
		},
		reports: &reportsStub{},
	}
}

func (h *harness) runtime() Runtime {
	return Runtime{
		Open: func(context.Context) (Services, func(), error) {
			h.opened++
			return Services{Audits: h.audits, Reports: h.reports, Exporter: exporterStub{}}, func() { h.closed++ }, nil
		},
		Migrate: func(context.Context) error {
			h.migrated++
			return nil
		},
	}
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	cmd := NewRootCommand(h.runtime())
	cmd.SetArgs(args)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListFiltersByStatus(t *testing.T) {
	h := newHarness()
	out, err := run(t, h, "list", "--status", "completed")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "Pharmacie du Port [sent]") || strings.Contains(out, "Carrefour") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if h.opened != 1 || h.closed != 1 {
		t.Fatalf("expected services to be opened and closed once, got %d/%d", h.opened, h.closed)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	h := newHarness()
	if _, err := run(t, h, "list", "--status", "archived"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if h.opened != 0 {
		t.Fatalf("services must not be opened for invalid flags")
	}
}

func TestShowPrintsScorecard(t *testing.T) {
	out, err := run(t, newHarness(), "show", "a-1")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"Carrefour (GMS)", "Global: 5/9 (56%)", "strong", "weak", "Golden rules: 3/10", "Barriers: Prix"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestShowUnknownAudit(t *testing.T) {
	_, err := run(t, newHarness(), "show", "missing")
	if !domain.IsKind(err, domain.ErrAuditNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRenderWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	if _, err := run(t, newHarness(), "render", "a-1", "--output", path); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("unexpected report content %q", data)
	}
}

func TestSendReportsFailures(t *testing.T) {
	h := newHarness()
	if _, err := run(t, h, "send", "a-1"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(h.reports.sent) != 1 {
		t.Fatalf("expected one send, got %v", h.reports.sent)
	}

	h.reports.sendErr = domain.WrapError(domain.ErrDelivery, "send report", errors.New("550"))
	_, err := run(t, h, "send", "a-1")
	if !domain.IsKind(err, domain.ErrDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestExportWritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audits.xlsx")
	out, err := run(t, newHarness(), "export", "-o", path)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("expected path in output:\n%s", out)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("expected workbook file, err=%v", err)
	}
}

func TestMigrateDoesNotOpenServices(t *testing.T) {
	h := newHarness()
	if _, err := run(t, h, "migrate"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if h.migrated != 1 || h.opened != 0 {
		t.Fatalf("expected migrate only, got migrated=%d opened=%d", h.migrated, h.opened)
	}
}

func TestPrintSummariesEmpty(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	printSummaries(&out, nil, "")
	if strings.TrimSpace(out.String()) != "No audits found." {
		t.Fatalf("unexpected output %q", out.String())
	}
}
