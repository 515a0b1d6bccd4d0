package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catman-audit/internal/config"
	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/core/scoring"
)

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func notFound(id string) error {
	return domain.WrapError(domain.ErrAuditNotFound, "get audit", errors.New("id="+id))
}

type auditsFake struct {
	audits  map[string]*domain.Audit
	created []ports.CreateAuditInput
	infos   []domain.InfoPatch
}

func newAuditsFake() *auditsFake {
	return &auditsFake{audits: map[string]*domain.Audit{
		"a-1": {
			ID:          "a-1",
			Status:      domain.StatusDraft,
			CurrentStep: domain.StepSeeIt,
			AuditorName: "Léa",
			StoreName:   "Carrefour",
			StoreType:   domain.StoreGMS,
			GoldenRules: map[string]bool{},
			Barriers:    []domain.Barrier{},
			CreatedAt:   fixedTime,
			UpdatedAt:   fixedTime,
		},
	}}
}

func (f *auditsFake) Create(_ context.Context, in ports.CreateAuditInput) (*domain.Audit, error) {
	f.created = append(f.created, in)
	if strings.TrimSpace(in.AuditorName) == "" {
		return nil, domain.Invalid("create audit", "auditor name is required")
	}
	audit := &domain.Audit{ID: "a-new", Status: domain.StatusDraft, AuditorName: in.AuditorName, StoreName: in.StoreName, StoreType: in.StoreType}
	f.audits[audit.ID] = audit
	return audit, nil
}

func (f *auditsFake) Get(_ context.Context, id string) (*domain.Audit, error) {
	audit, ok := f.audits[id]
	if !ok {
		return nil, notFound(id)
	}
	return audit, nil
}

func (f *auditsFake) List(context.Context) ([]domain.AuditSummary, error) {
	out := make([]domain.AuditSummary, 0, len(f.audits))
	for _, a := range f.audits {
		out = append(out, domain.AuditSummary{ID: a.ID, StoreName: a.StoreName, Status: a.Status})
	}
	return out, nil
}

func (f *auditsFake) UpdateInfo(_ context.Context, id string, patch domain.InfoPatch) error {
	audit, ok := f.audits[id]
	if !ok {
		return notFound(id)
	}
	f.infos = append(f.infos, patch)
	if patch.Weather != nil {
		audit.Weather = *patch.Weather
	}
	if patch.CategoryAnalyzed != nil {
		audit.CategoryAnalyzed = *patch.CategoryAnalyzed
	}
	return nil
}

func (f *auditsFake) UpdateExpertise(_ context.Context, id string, _ domain.ExpertisePatch) error {
	if _, ok := f.audits[id]; !ok {
		return notFound(id)
	}
	return nil
}

func (f *auditsFake) Delete(_ context.Context, id string) error {
	if _, ok := f.audits[id]; !ok {
		return notFound(id)
	}
	delete(f.audits, id)
	return nil
}

type wizardFake struct {
	audits *auditsFake
	err    error
}

func (f *wizardFake) Advance(ctx context.Context, id string) (*domain.Audit, domain.Transition, error) {
	if f.err != nil {
		return nil, domain.Transition{}, f.err
	}
	audit, err := f.audits.Get(ctx, id)
	if err != nil {
		return nil, domain.Transition{}, err
	}
	t := domain.NextTransition(audit.CurrentStep, audit.Status)
	next := t.Apply(*audit)
	return &next, t, nil
}

func (f *wizardFake) Retreat(ctx context.Context, id string) (*domain.Audit, domain.Transition, error) {
	audit, err := f.audits.Get(ctx, id)
	if err != nil {
		return nil, domain.Transition{}, err
	}
	t := domain.PreviousTransition(audit.CurrentStep)
	prev := t.Apply(*audit)
	return &prev, t, nil
}

func (f *wizardFake) SetStep(ctx context.Context, id string, step domain.Step) (*domain.Audit, error) {
	if !step.Valid() {
		return nil, domain.Invalid("set step", "step %d out of range", step)
	}
	audit, err := f.audits.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	audit.CurrentStep = step
	return audit, nil
}

type editorFake struct {
	evals    map[string]domain.Evaluation
	comments []string
	uploaded []byte
	rules    map[string]bool
	flushed  int
}

func newEditorFake() *editorFake {
	return &editorFake{evals: map[string]domain.Evaluation{}, rules: map[string]bool{}}
}

func (f *editorFake) ToggleEvaluation(_ context.Context, _ string, category domain.CategoryKey, key string, selected domain.Evaluation) (domain.Evaluation, error) {
	k := string(category) + "/" + key
	next := f.evals[k].Toggle(selected)
	f.evals[k] = next
	return next, nil
}

func (f *editorFake) SetComment(_ context.Context, _ string, _ domain.CategoryKey, _ string, text string) error {
	f.comments = append(f.comments, text)
	return nil
}

func (f *editorFake) SetPhoto(_ context.Context, _ string, _ domain.CategoryKey, _ string, url string) error {
	if url == "" {
		return domain.Invalid("set photo", "url is required")
	}
	return nil
}

func (f *editorFake) ClearPhoto(context.Context, string, domain.CategoryKey, string) error {
	return nil
}

func (f *editorFake) UploadPhoto(_ context.Context, _ string, _ domain.CategoryKey, _ string, photo ports.PhotoUpload) (string, error) {
	data, err := io.ReadAll(photo.Body)
	if err != nil {
		return "", err
	}
	f.uploaded = data
	return "http://localhost:8080/photos/p-1.png", nil
}

func (f *editorFake) SetGoldenRule(_ context.Context, _ string, key string, value bool) error {
	f.rules[key] = value
	return nil
}

func (f *editorFake) FlushComments(context.Context, string) error {
	f.flushed++
	return nil
}

type reportsFake struct {
	sendErr error
	queued  bool
}

func (f *reportsFake) Scorecard(context.Context, string) (scoring.Scorecard, error) {
	return scoring.Scorecard{Score: 3, Total: 8}, nil
}

func (f *reportsFake) Document(_ context.Context, id string) (domain.ReportDocument, error) {
	return domain.ReportDocument{Header: domain.ReportHeader{AuditID: id}}, nil
}

func (f *reportsFake) Render(_ context.Context, id string) (ports.RenderedReport, error) {
	if id == "missing" {
		return ports.RenderedReport{}, notFound(id)
	}
	return ports.RenderedReport{Filename: "audit-Carrefour-1.pdf", PDF: []byte("%PDF-1.4 test")}, nil
}

func (f *reportsFake) Send(context.Context, string) error {
	return f.sendErr
}

func (f *reportsFake) RequestSend(context.Context, string) (bool, error) {
	if f.sendErr != nil {
		return false, f.sendErr
	}
	return f.queued, nil
}

type exporterFake struct{}

func (exporterFake) ExportXLSX(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("PK\x03\x04"))
	return err
}

type photoStorageFake struct {
	files map[string]string
}

func (f photoStorageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f photoStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

type testDeps struct {
	audits  *auditsFake
	wizard  *wizardFake
	editor  *editorFake
	reports *reportsFake
}

func newTestDeps() *testDeps {
	audits := newAuditsFake()
	return &testDeps{
		audits:  audits,
		wizard:  &wizardFake{audits: audits},
		editor:  newEditorFake(),
		reports: &reportsFake{queued: true},
	}
}

func (d *testDeps) services() Services {
	return Services{
		Audits:   d.audits,
		Wizard:   d.wizard,
		Editor:   d.editor,
		Reports:  d.reports,
		Exporter: exporterFake{},
		Catalog:  catalog.MustDefault(),
	}
}

func defaultTestConfig() config.Config {
	return config.Config{
		UploadMaxBytes:       1 << 20,
		APIRequestValidation: true,
	}
}

func newTestHandler(cfg config.Config, options ...Option) http.Handler {
	return NewRouter(cfg, newTestDeps().services(), options...).Handler()
}
