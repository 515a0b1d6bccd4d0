// Package cli implements auditctl, the operator command line for audits.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/catman-audit/internal/core/ports"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// Services are the use cases reachable from the command line.
type Services struct {
	Audits   ports.AuditService
	Reports  ports.ReportService
	Exporter ports.AuditExporter
}

// Runtime opens services on demand so that commands which do not touch the
// database (help, migrate) never connect.
type Runtime struct {
	Open    func(ctx context.Context) (Services, func(), error)
	Migrate func(ctx context.Context) error
}

func NewRootCommand(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auditctl",
		Short: "Operate retail shopper audits",
		Long: `auditctl inspects audits, renders and mails their reports,
exports the audit base to a spreadsheet and applies database migrations.

Configuration is read from the same environment as the API
(POSTGRES_DSN, SMTP_HOST, MAIL_TO, STORAGE_PATH, ...).`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newListCommand(rt))
	cmd.AddCommand(newShowCommand(rt))
	cmd.AddCommand(newRenderCommand(rt))
	cmd.AddCommand(newSendCommand(rt))
	cmd.AddCommand(newExportCommand(rt))
	cmd.AddCommand(newMigrateCommand(rt))

	return cmd
}

func withServices(cmd *cobra.Command, rt Runtime, run func(Services) error) error {
	services, closeFn, err := rt.Open(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	return run(services)
}
