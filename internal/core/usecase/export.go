package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/core/report"
)

type ExportUseCase struct {
	repo      ports.AuditRepository
	assembler *report.Assembler
	exporter  ports.SpreadsheetExporter
}

func NewExportUseCase(repo ports.AuditRepository, c *catalog.Catalog, exporter ports.SpreadsheetExporter) *ExportUseCase {
	return &ExportUseCase{
		repo:      repo,
		assembler: report.NewAssembler(c),
		exporter:  exporter,
	}
}

// ExportXLSX writes one row per audit, most recent first, with the same
// figures the report shows.
func (uc *ExportUseCase) ExportXLSX(ctx context.Context, w io.Writer) error {
	summaries, err := uc.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list audits: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(summaries))
	for _, summary := range summaries {
		audit, err := uc.repo.GetByID(ctx, summary.ID)
		if err != nil {
			if domain.IsKind(err, domain.ErrAuditNotFound) {
				continue
			}
			return fmt.Errorf("load audit %s: %w", summary.ID, err)
		}
		rows = append(rows, domain.ExportRow{
			Summary: summary,
			Report:  uc.assembler.Assemble(audit),
		})
	}

	if err := uc.exporter.Export(w, rows); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
