// Package mcpadapter exposes read-only audit tools over the Model Context
// Protocol.
//
// Each tool follows the same shape: a struct holding its inbound service,
// Definition() returning the mcp.Tool schema and Handle() answering a call.
// Domain failures are returned as tool errors, never as protocol errors.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

// ListTool handles audit_list.
type ListTool struct {
	audits ports.AuditService
}

func NewListTool(audits ports.AuditService) *ListTool {
	return &ListTool{audits: audits}
}

func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("audit_list",
		mcp.WithDescription("List shopper audits, most recently updated first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of audits to return (default: 20)"),
		),
		mcp.WithString("status",
			mcp.Description("Only audits with this status: DRAFT or COMPLETED"),
		),
	)
}

func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)
	if limit <= 0 {
		return mcp.NewToolResultError("'limit' must be positive"), nil
	}
	status := domain.AuditStatus(strings.ToUpper(req.GetString("status", "")))

	summaries, err := t.audits.List(ctx)
	if err != nil {
		return toolError("list audits", err), nil
	}

	var b strings.Builder
	count := 0
	for _, s := range summaries {
		if status != "" && s.Status != status {
			continue
		}
		if count == limit {
			break
		}
		count++
		sent := ""
		if s.EmailSent {
			sent = ", sent"
		}
		fmt.Fprintf(&b, "- %s | %s (%s) | %s | step %d%s | updated %s\n",
			s.ID, s.StoreName, s.StoreType, s.Status, int(s.CurrentStep), sent,
			s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if count == 0 {
		return mcp.NewToolResultText("No audits found."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d audit(s):\n%s", count, b.String())), nil
}

// ScorecardTool handles audit_scorecard.
type ScorecardTool struct {
	reports ports.ReportService
}

func NewScorecardTool(reports ports.ReportService) *ScorecardTool {
	return &ScorecardTool{reports: reports}
}

func (t *ScorecardTool) Definition() mcp.Tool {
	return mcp.NewTool("audit_scorecard",
		mcp.WithDescription("Per-category scores, verdict bands, golden-rule tally and barriers of one audit."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Audit identifier"),
		),
	)
}

func (t *ScorecardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	card, err := t.reports.Scorecard(ctx, id)
	if err != nil {
		return toolError("scorecard", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Global: %d/%d (%.0f%%)\n", card.Score, card.Total, card.Ratio*100)
	for _, c := range card.Categories {
		fmt.Fprintf(&b, "- %s: %d/%d [%s] %s\n", c.Label, c.Score, c.Total, c.Band, c.Narrative)
	}
	fmt.Fprintf(&b, "Golden rules: %d/%d\n", card.GoldenRules, card.GoldenRulesTotal)
	if len(card.Barriers) == 0 {
		b.WriteString("Barriers: none\n")
	} else {
		fmt.Fprintf(&b, "Barriers: %s\n", strings.Join(card.Barriers, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ReportTool handles audit_report.
type ReportTool struct {
	reports ports.ReportService
}

func NewReportTool(reports ports.ReportService) *ReportTool {
	return &ReportTool{reports: reports}
}

func (t *ReportTool) Definition() mcp.Tool {
	return mcp.NewTool("audit_report",
		mcp.WithDescription("Report outline of one audit. Returns the document tree as JSON, or a condensed text outline."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Audit identifier"),
		),
		mcp.WithBoolean("json",
			mcp.Description("Return the full document tree as JSON (default: false)"),
		),
	)
}

func (t *ReportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	doc, err := t.reports.Document(ctx, id)
	if err != nil {
		return toolError("report", err), nil
	}
	if boolArg(req, "json", false) {
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
	return mcp.NewToolResultText(outline(doc)), nil
}

func outline(doc domain.ReportDocument) string {
	var b strings.Builder
	h := doc.Header
	fmt.Fprintf(&b, "# %s (%s)\n", h.StoreName, h.StoreTypeLabel)
	fmt.Fprintf(&b, "Auditor: %s | Category: %s", h.AuditorName, h.CategoryAnalyzed)
	if h.WeatherLabel != "" {
		fmt.Fprintf(&b, " | %s", h.WeatherLabel)
	}
	fmt.Fprintf(&b, "\nScore: %d/%d\n\n", h.Score, h.Total)

	for _, details := range doc.Details {
		fmt.Fprintf(&b, "## %s\n", details.Label)
		for _, c := range details.Criteria {
			fmt.Fprintf(&b, "- %s: %s", c.Label, c.Badge)
			if c.Comment != "" {
				fmt.Fprintf(&b, " (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Golden rules: %d/%d\n", doc.GoldenRules.Checked, doc.GoldenRules.Total)
	if len(doc.Barriers.Labels) > 0 {
		fmt.Fprintf(&b, "Barriers: %s\n", strings.Join(doc.Barriers.Labels, ", "))
	} else if doc.Barriers.Placeholder != "" {
		fmt.Fprintf(&b, "Barriers: %s\n", doc.Barriers.Placeholder)
	}
	if doc.Pharmacist != nil {
		fmt.Fprintf(&b, "Pharmacist: %s\n", doc.Pharmacist.Text)
	}
	fmt.Fprintf(&b, "Observation: %s\n", doc.Observation.Text)
	return b.String()
}

func toolError(op string, err error) *mcp.CallToolResult {
	if domain.IsKind(err, domain.ErrAuditNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: audit not found", op))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
