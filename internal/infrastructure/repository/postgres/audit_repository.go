package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/infrastructure/resilience"
)

type AuditRepository struct {
	db       *sql.DB
	executor *resilience.Executor
	now      func() time.Time
}

type Options struct {
	ResilienceExecutor *resilience.Executor
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return NewAuditRepositoryWithOptions(db, Options{})
}

func NewAuditRepositoryWithOptions(db *sql.DB, options Options) *AuditRepository {
	return &AuditRepository{
		db:       db,
		executor: options.ResilienceExecutor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const auditColumns = `id, status, current_step, auditor_name, store_name, store_type, category_analyzed, weather,
	golden_rules, barriers, main_observation, pharmacist_helped, email_sent, created_at, updated_at`

func (r *AuditRepository) Create(ctx context.Context, audit *domain.Audit) error {
	goldenRules, err := json.Marshal(audit.GoldenRules)
	if err != nil {
		return fmt.Errorf("marshal golden rules: %w", err)
	}
	barriers, err := marshalBarriers(audit.Barriers)
	if err != nil {
		return err
	}
	sections := make(map[domain.CategoryKey][]byte, len(audit.Sections))
	for _, category := range domain.Categories {
		criteria, err := json.Marshal(audit.Section(category).Criteria)
		if err != nil {
			return fmt.Errorf("marshal section %s: %w", category, err)
		}
		sections[category] = criteria
	}

	return r.run(ctx, "postgres.create_audit", func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		_, err = tx.ExecContext(ctx, `
INSERT INTO audits (`+auditColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
			audit.ID, string(audit.Status), int(audit.CurrentStep), audit.AuditorName, audit.StoreName,
			string(audit.StoreType), audit.CategoryAnalyzed, string(audit.Weather), goldenRules, barriers,
			audit.MainObservation, nullableBool(audit.PharmacistHelped), audit.EmailSent, audit.CreatedAt, audit.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert audit: %w", err)
		}

		for _, category := range domain.Categories {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_sections (audit_id, category, criteria) VALUES ($1,$2,$3)
`, audit.ID, string(category), sections[category]); err != nil {
				return fmt.Errorf("insert section %s: %w", category, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit create tx: %w", err)
		}
		return nil
	})
}

func (r *AuditRepository) GetByID(ctx context.Context, id string) (*domain.Audit, error) {
	var audit *domain.Audit
	err := r.run(ctx, "postgres.get_audit", func(ctx context.Context) error {
		row := r.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = $1`, id)
		loaded, err := scanAudit(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("get audit", id)
			}
			return fmt.Errorf("scan audit: %w", err)
		}

		rows, err := r.db.QueryContext(ctx, `SELECT category, criteria FROM audit_sections WHERE audit_id = $1`, id)
		if err != nil {
			return fmt.Errorf("query sections: %w", err)
		}
		defer rows.Close()

		loaded.Sections = make(map[domain.CategoryKey]domain.CategorySection, len(domain.Categories))
		for rows.Next() {
			var (
				category string
				raw      []byte
			)
			if err := rows.Scan(&category, &raw); err != nil {
				return fmt.Errorf("scan section: %w", err)
			}
			criteria := make(map[string]domain.Criterion)
			if err := json.Unmarshal(raw, &criteria); err != nil {
				return fmt.Errorf("unmarshal section %s: %w", category, err)
			}
			key := domain.CategoryKey(category)
			loaded.Sections[key] = domain.CategorySection{Category: key, Criteria: criteria}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate sections: %w", err)
		}

		audit = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audit, nil
}

func (r *AuditRepository) List(ctx context.Context) ([]domain.AuditSummary, error) {
	var out []domain.AuditSummary
	err := r.run(ctx, "postgres.list_audits", func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, `
SELECT id, status, auditor_name, store_name, store_type, current_step, email_sent, created_at, updated_at
FROM audits
ORDER BY updated_at DESC
`)
		if err != nil {
			return fmt.Errorf("list audits: %w", err)
		}
		defer rows.Close()

		out = make([]domain.AuditSummary, 0)
		for rows.Next() {
			var (
				s         domain.AuditSummary
				status    string
				storeType string
				step      int
			)
			if err := rows.Scan(&s.ID, &status, &s.AuditorName, &s.StoreName, &storeType, &step, &s.EmailSent, &s.CreatedAt, &s.UpdatedAt); err != nil {
				return fmt.Errorf("scan audit summary: %w", err)
			}
			s.Status = domain.AuditStatus(status)
			s.StoreType = domain.StoreType(storeType)
			s.CurrentStep = domain.Step(step)
			out = append(out, s)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate audits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AuditRepository) UpdateInfo(ctx context.Context, id string, patch domain.InfoPatch) error {
	var category, weather any
	if patch.CategoryAnalyzed != nil {
		category = *patch.CategoryAnalyzed
	}
	if patch.Weather != nil {
		weather = string(*patch.Weather)
	}
	return r.execOne(ctx, "postgres.update_info", "update info", id, `
UPDATE audits
SET category_analyzed = COALESCE($2::text, category_analyzed),
	weather = COALESCE($3::text, weather),
	updated_at = $4
WHERE id = $1
`, id, category, weather, r.now())
}

func (r *AuditRepository) UpdateExpertise(ctx context.Context, id string, patch domain.ExpertisePatch) error {
	var barriers, observation, helped any
	if patch.Barriers != nil {
		raw, err := marshalBarriers(*patch.Barriers)
		if err != nil {
			return err
		}
		barriers = string(raw)
	}
	if patch.MainObservation != nil {
		observation = *patch.MainObservation
	}
	if patch.PharmacistHelped != nil {
		helped = *patch.PharmacistHelped
	}
	return r.execOne(ctx, "postgres.update_expertise", "update expertise", id, `
UPDATE audits
SET barriers = COALESCE($2::jsonb, barriers),
	main_observation = COALESCE($3::text, main_observation),
	pharmacist_helped = COALESCE($4::boolean, pharmacist_helped),
	updated_at = $5
WHERE id = $1
`, id, barriers, observation, helped, r.now())
}

func (r *AuditRepository) SetStep(ctx context.Context, id string, step domain.Step) error {
	return r.execOne(ctx, "postgres.set_step", "set step", id, `
UPDATE audits SET current_step = $2, updated_at = $3 WHERE id = $1
`, id, int(step), r.now())
}

func (r *AuditRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.execOne(ctx, "postgres.mark_completed", "mark completed", id, `
UPDATE audits SET status = $2, updated_at = $3 WHERE id = $1
`, id, string(domain.StatusCompleted), r.now())
}

// MarkEmailSent leaves updated_at alone: the flag does not change report
// content.
func (r *AuditRepository) MarkEmailSent(ctx context.Context, id string) error {
	return r.execOne(ctx, "postgres.mark_email_sent", "mark email sent", id, `
UPDATE audits SET email_sent = TRUE WHERE id = $1
`, id)
}

// UpdateCriterionField merges one field into the stored criterion in a
// single statement, so concurrent writes to other fields or criteria of the
// same section are preserved.
func (r *AuditRepository) UpdateCriterionField(
	ctx context.Context,
	id string,
	category domain.CategoryKey,
	key string,
	field domain.CriterionField,
	value string,
) error {
	if !field.Valid() {
		return domain.Invalid("update criterion", "unknown field %q", field)
	}
	return r.execOne(ctx, "postgres.update_criterion", "update criterion", id, `
WITH touched AS (
	UPDATE audits SET updated_at = $6 WHERE id = $1 RETURNING id
)
UPDATE audit_sections s
SET criteria = jsonb_set(
	s.criteria,
	ARRAY[$3::text],
	COALESCE(s.criteria -> $3::text, '{}'::jsonb) || jsonb_build_object($4::text, $5::text)
)
FROM touched
WHERE s.audit_id = touched.id AND s.category = $2
`, id, string(category), key, string(field), value, r.now())
}

func (r *AuditRepository) SetGoldenRule(ctx context.Context, id, key string, value bool) error {
	return r.execOne(ctx, "postgres.set_golden_rule", "set golden rule", id, `
UPDATE audits
SET golden_rules = golden_rules || jsonb_build_object($2::text, $3::boolean),
	updated_at = $4
WHERE id = $1
`, id, key, value, r.now())
}

func (r *AuditRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "postgres.delete_audit", "delete audit", id, `DELETE FROM audits WHERE id = $1`, id)
}

func (r *AuditRepository) execOne(ctx context.Context, operation, label, id, query string, args ...any) error {
	return r.run(ctx, operation, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s rows affected: %w", label, err)
		}
		if rows == 0 {
			return notFound(label, id)
		}
		return nil
	})
}

func (r *AuditRepository) run(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if r.executor != nil {
		err = r.executor.Execute(ctx, operation, call, classifyPostgresError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

type auditScanner interface {
	Scan(dest ...interface{}) error
}

func scanAudit(row auditScanner) (*domain.Audit, error) {
	var (
		audit       domain.Audit
		status      string
		step        int
		storeType   string
		weather     string
		goldenRules []byte
		barriers    []byte
		helped      sql.NullBool
	)
	err := row.Scan(
		&audit.ID,
		&status,
		&step,
		&audit.AuditorName,
		&audit.StoreName,
		&storeType,
		&audit.CategoryAnalyzed,
		&weather,
		&goldenRules,
		&barriers,
		&audit.MainObservation,
		&helped,
		&audit.EmailSent,
		&audit.CreatedAt,
		&audit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	audit.Status = domain.AuditStatus(status)
	audit.CurrentStep = domain.Step(step)
	audit.StoreType = domain.StoreType(storeType)
	audit.Weather = domain.Weather(weather)
	if helped.Valid {
		v := helped.Bool
		audit.PharmacistHelped = &v
	}

	audit.GoldenRules = make(map[string]bool)
	if err := json.Unmarshal(goldenRules, &audit.GoldenRules); err != nil {
		return nil, fmt.Errorf("unmarshal golden rules: %w", err)
	}
	audit.Barriers = []domain.Barrier{}
	if err := json.Unmarshal(barriers, &audit.Barriers); err != nil {
		return nil, fmt.Errorf("unmarshal barriers: %w", err)
	}
	return &audit, nil
}

func marshalBarriers(barriers []domain.Barrier) ([]byte, error) {
	if barriers == nil {
		barriers = []domain.Barrier{}
	}
	raw, err := json.Marshal(barriers)
	if err != nil {
		return nil, fmt.Errorf("marshal barriers: %w", err)
	}
	return raw, nil
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func notFound(operation, id string) error {
	return domain.WrapError(domain.ErrAuditNotFound, operation, fmt.Errorf("id=%s", id))
}
