package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/scoring"
)

func newListCommand(rt Runtime) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audits, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			want := domain.AuditStatus(strings.ToUpper(status))
			if want != "" && want != domain.StatusDraft && want != domain.StatusCompleted {
				return fmt.Errorf("invalid status %q: must be DRAFT or COMPLETED", status)
			}
			return withServices(cmd, rt, func(s Services) error {
				summaries, err := s.Audits.List(cmd.Context())
				if err != nil {
					return err
				}
				printSummaries(cmd.OutOrStdout(), summaries, want)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only audits with this status (DRAFT|COMPLETED)")
	return cmd
}

func printSummaries(out io.Writer, summaries []domain.AuditSummary, status domain.AuditStatus) {
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	shown := 0
	for _, s := range summaries {
		if status != "" && s.Status != status {
			continue
		}
		shown++
		sent := ""
		if s.EmailSent {
			sent = green.Sprint(" [sent]")
		}
		fmt.Fprintf(out, "%-36s  %-9s  %-9s  step %d  %s%s  %s\n",
			s.ID, s.Status, s.StoreType, int(s.CurrentStep), s.StoreName, sent,
			gray.Sprint(s.UpdatedAt.Format(time.DateTime)))
	}
	if shown == 0 {
		fmt.Fprintln(out, "No audits found.")
	}
}

func newShowCommand(rt Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <audit-id>",
		Short: "Show the scorecard of an audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rt, func(s Services) error {
				audit, err := s.Audits.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				card, err := s.Reports.Scorecard(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printScorecard(cmd.OutOrStdout(), audit, card)
				return nil
			})
		},
	}
}

func printScorecard(out io.Writer, audit *domain.Audit, card scoring.Scorecard) {
	title := color.New(color.FgCyan, color.Bold)

	title.Fprintf(out, "%s (%s)\n", audit.StoreName, audit.StoreType)
	fmt.Fprintf(out, "Auditor: %s  Status: %s  Step: %d\n", audit.AuditorName, audit.Status, int(audit.CurrentStep))
	fmt.Fprintf(out, "Global: %d/%d (%.0f%%)\n\n", card.Score, card.Total, card.Ratio*100)
	for _, c := range card.Categories {
		fmt.Fprintf(out, "  %-10s %2d/%-2d  %s\n", c.Label, c.Score, c.Total, bandColor(c.Band).Sprint(c.Band))
	}
	fmt.Fprintf(out, "\nGolden rules: %d/%d\n", card.GoldenRules, card.GoldenRulesTotal)
	if len(card.Barriers) > 0 {
		fmt.Fprintf(out, "Barriers: %s\n", strings.Join(card.Barriers, ", "))
	}
}

func bandColor(b domain.Band) *color.Color {
	switch b {
	case domain.BandStrong:
		return color.New(color.FgGreen)
	case domain.BandModerate:
		return color.New(color.FgYellow)
	case domain.BandWeak:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

func newRenderCommand(rt Runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <audit-id>",
		Short: "Render the PDF report of an audit",
		Long: `Render the PDF report of an audit into a file.
Without --output the report is written to the current directory
under its attachment name (audit-<store>-<timestamp>.pdf).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rt, func(s Services) error {
				rendered, err := s.Reports.Render(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				path := output
				if path == "" {
					path = rendered.Filename
				}
				if err := os.WriteFile(path, rendered.PDF, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d bytes)\n", path, len(rendered.PDF))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func newSendCommand(rt Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "send <audit-id>",
		Short: "Render the report and mail it to the configured recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rt, func(s Services) error {
				if err := s.Reports.Send(cmd.Context(), args[0]); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Report of %s sent\n", args[0])
				return nil
			})
		},
	}
}

func newExportCommand(rt Runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every audit to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, rt, func(s Services) error {
				var buf bytes.Buffer
				if err := s.Exporter.ExportXLSX(cmd.Context(), &buf); err != nil {
					return err
				}
				path := output
				if path == "" {
					path = fmt.Sprintf("audits-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
				}
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write workbook: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workbook written to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func newMigrateCommand(rt Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
