package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

func TestCreateAuditBuildsEmptyRubric(t *testing.T) {
	c := catalog.MustDefault()
	repo := newAuditRepoFake()
	uc := NewAuditUseCase(repo, c, nil)

	audit, err := uc.Create(context.Background(), ports.CreateAuditInput{
		AuditorName: " Claire ",
		StoreName:   "Pharmacie des Arts",
		StoreType:   domain.StorePharmacie,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if audit.ID == "" || audit.Status != domain.StatusDraft || audit.CurrentStep != domain.FirstStep {
		t.Fatalf("unexpected new audit %+v", audit)
	}
	if audit.AuditorName != "Claire" {
		t.Fatalf("expected trimmed auditor, got %q", audit.AuditorName)
	}
	if len(audit.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(audit.Sections))
	}
	for _, category := range c.Categories {
		section := audit.Sections[category.Key]
		if len(section.Criteria) != len(category.Criteria) {
			t.Fatalf("%s: expected %d criteria, got %d", category.Key, len(category.Criteria), len(section.Criteria))
		}
		for key, criterion := range section.Criteria {
			if criterion != (domain.Criterion{}) {
				t.Fatalf("%s.%s: expected unset criterion, got %+v", category.Key, key, criterion)
			}
		}
	}
	if len(audit.GoldenRules) != 10 {
		t.Fatalf("expected 10 golden rules, got %d", len(audit.GoldenRules))
	}
	if _, err := repo.GetByID(context.Background(), audit.ID); err != nil {
		t.Fatalf("expected audit persisted: %v", err)
	}
}

func TestCreateAuditValidation(t *testing.T) {
	uc := NewAuditUseCase(newAuditRepoFake(), catalog.MustDefault(), nil)
	cases := []ports.CreateAuditInput{
		{AuditorName: "", StoreName: "S", StoreType: domain.StoreGMS},
		{AuditorName: "A", StoreName: "  ", StoreType: domain.StoreGMS},
		{AuditorName: "A", StoreName: "S", StoreType: "SUPERETTE"},
	}
	for i, in := range cases {
		if _, err := uc.Create(context.Background(), in); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestUpdateExpertiseNormalizesBarriers(t *testing.T) {
	c := catalog.MustDefault()
	repo := newAuditRepoFake()
	repo.seed(c, "a-1", domain.StoreGMS)
	uc := NewAuditUseCase(repo, c, nil)

	barriers := []domain.Barrier{"USAGE", "AWARENESS", "USAGE"}
	if err := uc.UpdateExpertise(context.Background(), "a-1", domain.ExpertisePatch{Barriers: &barriers}); err != nil {
		t.Fatalf("UpdateExpertise() error = %v", err)
	}
	got := repo.stored("a-1").Barriers
	if len(got) != 2 || got[0] != "AWARENESS" || got[1] != "USAGE" {
		t.Fatalf("expected normalized barriers, got %v", got)
	}

	unknown := []domain.Barrier{"PRICE"}
	if err := uc.UpdateExpertise(context.Background(), "a-1", domain.ExpertisePatch{Barriers: &unknown}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateExpertisePharmacistOnlyForPharmacies(t *testing.T) {
	c := catalog.MustDefault()
	repo := newAuditRepoFake()
	repo.seed(c, "gms", domain.StoreGMS)
	repo.seed(c, "pharma", domain.StorePharmacie)
	uc := NewAuditUseCase(repo, c, nil)
	helped := false

	if err := uc.UpdateExpertise(context.Background(), "gms", domain.ExpertisePatch{PharmacistHelped: &helped}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error for GMS, got %v", err)
	}
	if err := uc.UpdateExpertise(context.Background(), "pharma", domain.ExpertisePatch{PharmacistHelped: &helped}); err != nil {
		t.Fatalf("UpdateExpertise() error = %v", err)
	}
	stored := repo.stored("pharma")
	if stored.PharmacistHelped == nil || *stored.PharmacistHelped {
		t.Fatalf("expected pharmacistHelped=false, got %v", stored.PharmacistHelped)
	}
}

func TestUpdateInfoRejectsUnknownWeather(t *testing.T) {
	c := catalog.MustDefault()
	repo := newAuditRepoFake()
	repo.seed(c, "a-1", domain.StoreGMS)
	uc := NewAuditUseCase(repo, c, nil)

	weather := domain.Weather("ORAGEUSE")
	if err := uc.UpdateInfo(context.Background(), "a-1", domain.InfoPatch{Weather: &weather}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	calm := domain.WeatherCalme
	category := "Hygiène bucco-dentaire"
	if err := uc.UpdateInfo(context.Background(), "a-1", domain.InfoPatch{Weather: &calm, CategoryAnalyzed: &category}); err != nil {
		t.Fatalf("UpdateInfo() error = %v", err)
	}
	stored := repo.stored("a-1")
	if stored.Weather != calm || stored.CategoryAnalyzed != category {
		t.Fatalf("unexpected info %q / %q", stored.Weather, stored.CategoryAnalyzed)
	}
	if err := uc.UpdateInfo(context.Background(), "a-1", domain.InfoPatch{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty patch rejected, got %v", err)
	}
}

func TestDeleteDiscardsBufferedComments(t *testing.T) {
	c := catalog.MustDefault()
	repo := newAuditRepoFake()
	repo.seed(c, "a-1", domain.StoreGMS)
	comments := NewCommentBuffer(repo, 0, 0)
	uc := NewAuditUseCase(repo, c, comments)

	_ = comments.Set(context.Background(), "a-1", domain.CategorySeeIt, "curves", "x")
	if err := uc.Delete(context.Background(), "a-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if comments.Len() != 0 {
		t.Fatalf("expected buffered comments dropped")
	}
	if err := uc.Delete(context.Background(), "a-1"); !domain.IsKind(err, domain.ErrAuditNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
