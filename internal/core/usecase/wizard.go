package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

// GatingPolicy decides whether forward navigation requires the current step
// to be filled in.
type GatingPolicy string

const (
	GatingNone   GatingPolicy = "none"
	GatingStrict GatingPolicy = "strict"
)

func ParseGatingPolicy(raw string) (GatingPolicy, error) {
	switch GatingPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", GatingNone:
		return GatingNone, nil
	case GatingStrict:
		return GatingStrict, nil
	default:
		return "", fmt.Errorf("unknown wizard gating policy %q", raw)
	}
}

// ReportRequester queues the delivery of a completed audit.
type ReportRequester interface {
	RequestSend(ctx context.Context, id string) (bool, error)
}

type WizardOptions struct {
	Gating   GatingPolicy
	AutoSend ReportRequester
	Recorder ports.EditRecorder
}

type WizardUseCase struct {
	repo     ports.AuditRepository
	catalog  *catalog.Catalog
	comments *CommentBuffer
	gating   GatingPolicy
	autoSend ReportRequester
	recorder ports.EditRecorder
}

func NewWizardUseCase(
	repo ports.AuditRepository,
	c *catalog.Catalog,
	comments *CommentBuffer,
	options WizardOptions,
) *WizardUseCase {
	gating := options.Gating
	if gating == "" {
		gating = GatingNone
	}
	recorder := options.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &WizardUseCase{
		repo:     repo,
		catalog:  c,
		comments: comments,
		gating:   gating,
		autoSend: options.AutoSend,
		recorder: recorder,
	}
}

// Advance moves one step forward, or completes the audit from the recap
// step. A failed write leaves the stored step as it was.
func (uc *WizardUseCase) Advance(ctx context.Context, id string) (*domain.Audit, domain.Transition, error) {
	audit, err := uc.load(ctx, id)
	if err != nil {
		return nil, domain.Transition{}, err
	}

	t := domain.NextTransition(audit.CurrentStep, audit.Status)
	if t.Noop() {
		return audit, t, nil
	}
	if !t.Complete {
		if err := uc.checkGate(audit, t.From); err != nil {
			return nil, t, err
		}
	}
	if err := uc.persist(ctx, id, t); err != nil {
		return nil, t, err
	}

	next := t.Apply(*audit)
	if t.Complete {
		uc.recorder.RecordTransition("complete")
		slog.Info("audit_completed", "audit_id", id, "store", audit.StoreName)
		uc.requestAutoSend(ctx, id)
	} else {
		uc.recorder.RecordTransition("next")
	}
	return &next, t, nil
}

func (uc *WizardUseCase) Retreat(ctx context.Context, id string) (*domain.Audit, domain.Transition, error) {
	audit, err := uc.load(ctx, id)
	if err != nil {
		return nil, domain.Transition{}, err
	}

	t := domain.PreviousTransition(audit.CurrentStep)
	if t.Noop() {
		return audit, t, nil
	}
	if err := uc.persist(ctx, id, t); err != nil {
		return nil, t, err
	}

	uc.recorder.RecordTransition("previous")
	next := t.Apply(*audit)
	return &next, t, nil
}

// SetStep jumps to an arbitrary step. Repeating the same request has no
// further effect; completion status is not touched.
func (uc *WizardUseCase) SetStep(ctx context.Context, id string, step domain.Step) (*domain.Audit, error) {
	if !step.Valid() {
		return nil, domain.Invalid("set step", "step %d outside [%d,%d]", step, domain.FirstStep, domain.LastStep)
	}
	audit, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if audit.CurrentStep == step {
		return audit, nil
	}
	for s := audit.CurrentStep; s < step; s++ {
		if err := uc.checkGate(audit, s); err != nil {
			return nil, err
		}
	}

	t := domain.Transition{From: audit.CurrentStep, To: step}
	if err := uc.persist(ctx, id, t); err != nil {
		return nil, err
	}
	uc.recorder.RecordTransition("set")
	next := t.Apply(*audit)
	return &next, nil
}

// StepComplete reports whether a step carries every answer strict gating
// expects.
func StepComplete(audit *domain.Audit, c *catalog.Catalog, step domain.Step) bool {
	if step == domain.StepInfo {
		return strings.TrimSpace(audit.CategoryAnalyzed) != "" && audit.Weather != ""
	}
	key, ok := step.Category()
	if !ok {
		return true
	}
	category, ok := c.Category(key)
	if !ok {
		return true
	}
	section := audit.Section(key)
	for _, criterion := range category.Criteria {
		if section.Get(criterion.Key).Eval == domain.EvalUnset {
			return false
		}
	}
	return true
}

func (uc *WizardUseCase) load(ctx context.Context, id string) (*domain.Audit, error) {
	if uc.comments != nil {
		if err := uc.comments.Flush(ctx, id); err != nil {
			return nil, fmt.Errorf("flush comments: %w", err)
		}
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *WizardUseCase) checkGate(audit *domain.Audit, step domain.Step) error {
	if uc.gating != GatingStrict || StepComplete(audit, uc.catalog, step) {
		return nil
	}
	return domain.WrapError(
		domain.ErrStepIncomplete,
		"wizard advance",
		fmt.Errorf("step %q is not complete", uc.catalog.StepName(step)),
	)
}

func (uc *WizardUseCase) persist(ctx context.Context, id string, t domain.Transition) error {
	var err error
	if t.Complete {
		err = uc.repo.MarkCompleted(ctx, id)
	} else {
		err = uc.repo.SetStep(ctx, id, t.To)
	}
	if err != nil {
		return fmt.Errorf("persist wizard transition %d->%d: %w", t.From, t.To, err)
	}
	slog.Debug("wizard_transition", "audit_id", id, "from", int(t.From), "to", int(t.To), "complete", t.Complete)
	return nil
}

func (uc *WizardUseCase) requestAutoSend(ctx context.Context, id string) {
	if uc.autoSend == nil {
		return
	}
	if _, err := uc.autoSend.RequestSend(ctx, id); err != nil {
		slog.Warn("report_auto_send_failed", "audit_id", id, "error", err)
	}
}

type noopRecorder struct{}

func (noopRecorder) RecordTransition(string) {}
func (noopRecorder) RecordFieldWrite(string) {}
