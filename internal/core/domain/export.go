package domain

// ExportRow is one audit prepared for spreadsheet export.
type ExportRow struct {
	Summary AuditSummary
	Report  ReportDocument
}
