package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

type AuditUseCase struct {
	repo     ports.AuditRepository
	catalog  *catalog.Catalog
	comments *CommentBuffer
}

func NewAuditUseCase(repo ports.AuditRepository, c *catalog.Catalog, comments *CommentBuffer) *AuditUseCase {
	return &AuditUseCase{
		repo:     repo,
		catalog:  c,
		comments: comments,
	}
}

func (uc *AuditUseCase) Create(ctx context.Context, in ports.CreateAuditInput) (*domain.Audit, error) {
	auditor := strings.TrimSpace(in.AuditorName)
	store := strings.TrimSpace(in.StoreName)
	if auditor == "" {
		return nil, domain.Invalid("create audit", "auditor name is required")
	}
	if store == "" {
		return nil, domain.Invalid("create audit", "store name is required")
	}
	if !in.StoreType.Valid() {
		return nil, domain.Invalid("create audit", "unknown store type %q", in.StoreType)
	}

	now := time.Now().UTC()
	audit := &domain.Audit{
		ID:          uuid.NewString(),
		Status:      domain.StatusDraft,
		CurrentStep: domain.FirstStep,
		AuditorName: auditor,
		StoreName:   store,
		StoreType:   in.StoreType,
		Sections:    uc.catalog.NewSections(),
		GoldenRules: uc.catalog.NewGoldenRules(),
		Barriers:    []domain.Barrier{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, audit); err != nil {
		return nil, fmt.Errorf("create audit: %w", err)
	}
	return audit, nil
}

// Get loads an audit with any comment still waiting in the buffer applied.
func (uc *AuditUseCase) Get(ctx context.Context, id string) (*domain.Audit, error) {
	audit, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if uc.comments != nil {
		uc.comments.Overlay(audit)
	}
	return audit, nil
}

func (uc *AuditUseCase) List(ctx context.Context) ([]domain.AuditSummary, error) {
	return uc.repo.List(ctx)
}

func (uc *AuditUseCase) UpdateInfo(ctx context.Context, id string, patch domain.InfoPatch) error {
	if patch.Empty() {
		return domain.Invalid("update info", "nothing to update")
	}
	if patch.Weather != nil && !patch.Weather.Valid() {
		return domain.Invalid("update info", "unknown weather %q", *patch.Weather)
	}
	if patch.CategoryAnalyzed != nil {
		trimmed := strings.TrimSpace(*patch.CategoryAnalyzed)
		patch.CategoryAnalyzed = &trimmed
	}
	return uc.repo.UpdateInfo(ctx, id, patch)
}

// UpdateExpertise writes the expertise step. Barriers are stored as a
// deduplicated set in rubric order; the pharmacist answer only exists for
// pharmacies.
func (uc *AuditUseCase) UpdateExpertise(ctx context.Context, id string, patch domain.ExpertisePatch) error {
	if patch.Empty() {
		return domain.Invalid("update expertise", "nothing to update")
	}
	if patch.Barriers != nil {
		normalized, err := uc.catalog.NormalizeBarriers(*patch.Barriers)
		if err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "update expertise", err)
		}
		patch.Barriers = &normalized
	}
	if patch.PharmacistHelped != nil {
		audit, err := uc.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if audit.StoreType != domain.StorePharmacie {
			return domain.Invalid("update expertise", "pharmacist answer requires a %s store", domain.StorePharmacie)
		}
	}
	return uc.repo.UpdateExpertise(ctx, id, patch)
}

func (uc *AuditUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	if uc.comments != nil {
		uc.comments.Discard(id)
	}
	return nil
}
