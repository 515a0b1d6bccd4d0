package mcpadapter

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/catman-audit/internal/core/ports"
)

// Version is set at build time via ldflags.
var Version = "dev"

const instructions = `Catman audit exposes read-only access to retail shopper audits.
Use audit_list to find an audit id, then audit_scorecard for scores and verdict bands,
or audit_report for the full report outline.`

// NewServer registers every audit tool on a fresh MCP server.
func NewServer(audits ports.AuditService, reports ports.ReportService) *server.MCPServer {
	s := server.NewMCPServer(
		"catman-audit",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	list := NewListTool(audits)
	s.AddTool(list.Definition(), list.Handle)

	scorecard := NewScorecardTool(reports)
	s.AddTool(scorecard.Definition(), scorecard.Handle)

	report := NewReportTool(reports)
	s.AddTool(report.Definition(), report.Handle)

	return s
}
