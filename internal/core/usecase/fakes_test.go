package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

type fieldWrite struct {
	auditID  string
	category domain.CategoryKey
	key      string
	field    domain.CriterionField
	value    string
}

type auditRepoFake struct {
	mu sync.Mutex

	audits      map[string]*domain.Audit
	fieldWrites []fieldWrite
	stepWrites  []domain.Step
	completions int
	emailMarks  int
	deletes     []string

	getErr       error
	setStepErr   error
	completeErr  error
	fieldErr     error
	markEmailErr error
}

func newAuditRepoFake() *auditRepoFake {
	return &auditRepoFake{audits: make(map[string]*domain.Audit)}
}

func (f *auditRepoFake) seed(c *catalog.Catalog, id string, storeType domain.StoreType) *domain.Audit {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	audit := &domain.Audit{
		ID:          id,
		Status:      domain.StatusDraft,
		AuditorName: "Claire",
		StoreName:   "Pharmacie des Arts",
		StoreType:   storeType,
		Sections:    c.NewSections(),
		GoldenRules: c.NewGoldenRules(),
		Barriers:    []domain.Barrier{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.audits[id] = audit
	return audit
}

func (f *auditRepoFake) stored(id string) domain.Audit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneAudit(f.audits[id])
}

func (f *auditRepoFake) Create(_ context.Context, audit *domain.Audit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := cloneAudit(audit)
	f.audits[audit.ID] = &copied
	return nil
}

func (f *auditRepoFake) GetByID(_ context.Context, id string) (*domain.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	audit, ok := f.audits[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAuditNotFound, "get audit", io.EOF)
	}
	copied := cloneAudit(audit)
	return &copied, nil
}

func (f *auditRepoFake) List(context.Context) ([]domain.AuditSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditSummary, 0, len(f.audits))
	for _, a := range f.audits {
		out = append(out, domain.AuditSummary{
			ID:          a.ID,
			Status:      a.Status,
			AuditorName: a.AuditorName,
			StoreName:   a.StoreName,
			StoreType:   a.StoreType,
			CurrentStep: a.CurrentStep,
			EmailSent:   a.EmailSent,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *auditRepoFake) UpdateInfo(_ context.Context, id string, patch domain.InfoPatch) error {
	return f.mutate(id, func(a *domain.Audit) error {
		if patch.CategoryAnalyzed != nil {
			a.CategoryAnalyzed = *patch.CategoryAnalyzed
		}
		if patch.Weather != nil {
			a.Weather = *patch.Weather
		}
		return nil
	})
}

func (f *auditRepoFake) UpdateExpertise(_ context.Context, id string, patch domain.ExpertisePatch) error {
	return f.mutate(id, func(a *domain.Audit) error {
		if patch.Barriers != nil {
			a.Barriers = append([]domain.Barrier(nil), (*patch.Barriers)...)
		}
		if patch.MainObservation != nil {
			a.MainObservation = *patch.MainObservation
		}
		if patch.PharmacistHelped != nil {
			v := *patch.PharmacistHelped
			a.PharmacistHelped = &v
		}
		return nil
	})
}

func (f *auditRepoFake) SetStep(_ context.Context, id string, step domain.Step) error {
	return f.mutate(id, func(a *domain.Audit) error {
		if f.setStepErr != nil {
			return f.setStepErr
		}
		f.stepWrites = append(f.stepWrites, step)
		a.CurrentStep = step
		return nil
	})
}

func (f *auditRepoFake) MarkCompleted(_ context.Context, id string) error {
	return f.mutate(id, func(a *domain.Audit) error {
		if f.completeErr != nil {
			return f.completeErr
		}
		f.completions++
		a.Status = domain.StatusCompleted
		return nil
	})
}

func (f *auditRepoFake) MarkEmailSent(_ context.Context, id string) error {
	return f.mutate(id, func(a *domain.Audit) error {
		if f.markEmailErr != nil {
			return f.markEmailErr
		}
		f.emailMarks++
		a.EmailSent = true
		return nil
	})
}

func (f *auditRepoFake) UpdateCriterionField(
	_ context.Context,
	id string,
	category domain.CategoryKey,
	key string,
	field domain.CriterionField,
	value string,
) error {
	return f.mutate(id, func(a *domain.Audit) error {
		if f.fieldErr != nil {
			return f.fieldErr
		}
		f.fieldWrites = append(f.fieldWrites, fieldWrite{auditID: id, category: category, key: key, field: field, value: value})
		section := a.Sections[category]
		section.Criteria[key] = section.Criteria[key].With(field, value)
		a.Sections[category] = section
		return nil
	})
}

func (f *auditRepoFake) SetGoldenRule(_ context.Context, id, key string, value bool) error {
	return f.mutate(id, func(a *domain.Audit) error {
		a.GoldenRules[key] = value
		return nil
	})
}

func (f *auditRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.audits[id]; !ok {
		return domain.WrapError(domain.ErrAuditNotFound, "delete audit", io.EOF)
	}
	delete(f.audits, id)
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *auditRepoFake) writes() []fieldWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fieldWrite(nil), f.fieldWrites...)
}

func (f *auditRepoFake) setFieldErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldErr = err
}

func (f *auditRepoFake) mutate(id string, apply func(a *domain.Audit) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	audit, ok := f.audits[id]
	if !ok {
		return domain.WrapError(domain.ErrAuditNotFound, "update audit", io.EOF)
	}
	if err := apply(audit); err != nil {
		return err
	}
	audit.UpdatedAt = audit.UpdatedAt.Add(time.Second)
	return nil
}

func cloneAudit(a *domain.Audit) domain.Audit {
	out := *a
	out.Sections = make(map[domain.CategoryKey]domain.CategorySection, len(a.Sections))
	for k, s := range a.Sections {
		criteria := make(map[string]domain.Criterion, len(s.Criteria))
		for ck, cv := range s.Criteria {
			criteria[ck] = cv
		}
		out.Sections[k] = domain.CategorySection{Category: s.Category, Criteria: criteria}
	}
	out.GoldenRules = make(map[string]bool, len(a.GoldenRules))
	for k, v := range a.GoldenRules {
		out.GoldenRules[k] = v
	}
	out.Barriers = append([]domain.Barrier(nil), a.Barriers...)
	if a.PharmacistHelped != nil {
		v := *a.PharmacistHelped
		out.PharmacistHelped = &v
	}
	return out
}

type recorderFake struct {
	mu          sync.Mutex
	transitions []string
	fields      []string
}

func (r *recorderFake) RecordTransition(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, kind)
}

func (r *recorderFake) RecordFieldWrite(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = append(r.fields, field)
}

type requesterFake struct {
	ids []string
	err error
}

func (r *requesterFake) RequestSend(_ context.Context, id string) (bool, error) {
	r.ids = append(r.ids, id)
	return true, r.err
}

var _ ports.AuditRepository = (*auditRepoFake)(nil)
