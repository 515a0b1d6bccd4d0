//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
)

func setupIntegrationDB(t *testing.T) *AuditRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("catman_test"),
		tcpostgres.WithUsername("catman"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := Migrate(dsn); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	db, err := OpenDB(dsn)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewAuditRepository(db)
}

func TestIntegrationConcurrentFieldWritesDoNotClobber(t *testing.T) {
	repo := setupIntegrationDB(t)
	ctx := context.Background()
	c := catalog.MustDefault()
	now := time.Now().UTC()

	audit := &domain.Audit{
		ID:          "it-1",
		Status:      domain.StatusDraft,
		AuditorName: "Claire",
		StoreName:   "Pharmacie des Arts",
		StoreType:   domain.StorePharmacie,
		Sections:    c.NewSections(),
		GoldenRules: c.NewGoldenRules(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, audit); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	category, _ := c.Category(domain.CategoryChooseIt)
	var wg sync.WaitGroup
	for _, criterion := range category.Criteria {
		for _, field := range []domain.CriterionField{domain.FieldEval, domain.FieldComment, domain.FieldPhoto} {
			wg.Add(1)
			go func(key string, field domain.CriterionField) {
				defer wg.Done()
				value := key + "-" + string(field)
				if field == domain.FieldEval {
					value = string(domain.EvalPartiel)
				}
				if err := repo.UpdateCriterionField(ctx, "it-1", domain.CategoryChooseIt, key, field, value); err != nil {
					t.Errorf("UpdateCriterionField(%s,%s) error = %v", key, field, err)
				}
			}(criterion.Key, field)
		}
	}
	wg.Wait()

	loaded, err := repo.GetByID(ctx, "it-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	for _, criterion := range category.Criteria {
		got := loaded.Sections[domain.CategoryChooseIt].Criteria[criterion.Key]
		want := domain.Criterion{
			Eval:    domain.EvalPartiel,
			Comment: criterion.Key + "-comment",
			Photo:   criterion.Key + "-photo",
		}
		if got != want {
			t.Fatalf("%s: expected %+v, got %+v", criterion.Key, want, got)
		}
	}
	if !loaded.UpdatedAt.After(now) {
		t.Fatalf("expected updated_at to move forward")
	}
}

func TestIntegrationLifecycle(t *testing.T) {
	repo := setupIntegrationDB(t)
	ctx := context.Background()
	c := catalog.MustDefault()
	now := time.Now().UTC()

	if err := repo.Create(ctx, &domain.Audit{
		ID: "it-2", Status: domain.StatusDraft, AuditorName: "A", StoreName: "S", StoreType: domain.StoreGMS,
		Sections: c.NewSections(), GoldenRules: c.NewGoldenRules(), CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	barriers := []domain.Barrier{"AWARENESS", "USAGE"}
	observation := "Linéaire saturé"
	if err := repo.UpdateExpertise(ctx, "it-2", domain.ExpertisePatch{Barriers: &barriers, MainObservation: &observation}); err != nil {
		t.Fatalf("UpdateExpertise() error = %v", err)
	}
	if err := repo.SetGoldenRule(ctx, "it-2", "curves", true); err != nil {
		t.Fatalf("SetGoldenRule() error = %v", err)
	}
	if err := repo.SetStep(ctx, "it-2", domain.StepRecap); err != nil {
		t.Fatalf("SetStep() error = %v", err)
	}
	if err := repo.MarkCompleted(ctx, "it-2"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := repo.MarkEmailSent(ctx, "it-2"); err != nil {
		t.Fatalf("MarkEmailSent() error = %v", err)
	}

	loaded, err := repo.GetByID(ctx, "it-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if loaded.Status != domain.StatusCompleted || !loaded.EmailSent || loaded.CurrentStep != domain.StepRecap {
		t.Fatalf("unexpected lifecycle state %+v", loaded)
	}
	if len(loaded.Barriers) != 2 || loaded.MainObservation != observation || !loaded.GoldenRules["curves"] {
		t.Fatalf("unexpected expertise state %+v", loaded)
	}

	if err := repo.Delete(ctx, "it-2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "it-2"); !domain.IsKind(err, domain.ErrAuditNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
