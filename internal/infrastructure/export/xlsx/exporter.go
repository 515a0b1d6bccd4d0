// Package xlsx writes audits into an Excel workbook: one summary row per
// audit and one row per answered criterion.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/catman-audit/internal/core/domain"
)

const (
	SheetAudits   = "Audits"
	SheetCriteria = "Critères"

	dateLayout = "2006-01-02 15:04"
)

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

var auditColumns = []string{
	"ID", "Magasin", "Type", "Auditeur", "Statut", "Étape", "Catégorie analysée", "Météo",
	"Voir", "Trouver", "Choisir", "Acheter", "Score global", "Règles d'or",
	"Freins", "Pharmacien", "Observation", "Email envoyé", "Créé le", "Mis à jour le",
}

var criteriaColumns = []string{
	"Audit", "Magasin", "Catégorie", "Critère", "Question", "Évaluation", "Commentaire", "Photo",
}

func (e *Exporter) Export(w io.Writer, rows []domain.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAudits); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetCriteria); err != nil {
		return fmt.Errorf("create criteria sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#154360"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, SheetAudits, auditColumns, headerStyle); err != nil {
		return err
	}
	if err := writeHeader(f, SheetCriteria, criteriaColumns, headerStyle); err != nil {
		return err
	}

	criteriaRow := 2
	for i, row := range rows {
		if err := setRow(f, SheetAudits, i+2, auditRow(row)); err != nil {
			return err
		}
		for _, category := range row.Report.Details {
			for _, c := range category.Criteria {
				if c.Eval == domain.EvalUnset && c.Comment == "" && c.Photo == "" {
					continue
				}
				values := []any{
					row.Summary.ID, row.Summary.StoreName, category.Label, c.Label, c.Question,
					c.Badge, c.Comment, c.Photo,
				}
				if err := setRow(f, SheetCriteria, criteriaRow, values); err != nil {
					return err
				}
				criteriaRow++
			}
		}
	}

	_ = f.SetColWidth(SheetAudits, "A", "A", 38)
	_ = f.SetColWidth(SheetAudits, "B", "D", 22)
	_ = f.SetColWidth(SheetAudits, "O", "Q", 40)
	_ = f.SetColWidth(SheetCriteria, "A", "A", 38)
	_ = f.SetColWidth(SheetCriteria, "C", "E", 30)
	_ = f.SetColWidth(SheetCriteria, "G", "H", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, columns []string, style int) error {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := setRow(f, sheet, 1, values); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return fmt.Errorf("filter %s header: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func auditRow(row domain.ExportRow) []any {
	s, doc := row.Summary, row.Report

	scores := make(map[domain.CategoryKey]string, len(doc.Scorecards))
	for _, card := range doc.Scorecards {
		scores[card.Category] = fmt.Sprintf("%d/%d", card.Score, card.Total)
	}

	barriers := doc.Barriers.Placeholder
	if len(doc.Barriers.Labels) > 0 {
		barriers = strings.Join(doc.Barriers.Labels, ", ")
	}
	pharmacist := ""
	if doc.Pharmacist != nil {
		pharmacist = doc.Pharmacist.Text
	}
	emailSent := "Non"
	if s.EmailSent {
		emailSent = "Oui"
	}

	return []any{
		s.ID,
		s.StoreName,
		doc.Header.StoreTypeLabel,
		s.AuditorName,
		string(s.Status),
		int(s.CurrentStep),
		doc.Header.CategoryAnalyzed,
		doc.Header.WeatherLabel,
		scores[domain.CategorySeeIt],
		scores[domain.CategoryFindIt],
		scores[domain.CategoryChooseIt],
		scores[domain.CategoryBuyIt],
		fmt.Sprintf("%d/%d", doc.Header.Score, doc.Header.Total),
		fmt.Sprintf("%d/%d", doc.GoldenRules.Checked, doc.GoldenRules.Total),
		barriers,
		pharmacist,
		doc.Observation.Text,
		emailSent,
		s.CreatedAt.UTC().Format(dateLayout),
		s.UpdatedAt.UTC().Format(dateLayout),
	}
}
