// Package kb implements the kbstrap commands.
package kb

import (
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Create or adopt the knowledge base, then query it",
		Long: `Resolve the knowledge base for the configured mode, then read questions from
stdin and print generated answers until "exit" is entered. A retrieve-only
demonstration query runs after the loop ends.

In create mode the bucket, vector collection, service role, knowledge base and
data source are provisioned, KBSTRAP_DATA_DIR is uploaded and ingestion is started.
In adopt mode the knowledge base named by KBSTRAP_KNOWLEDGE_BASE_NAME is used as-is.`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	ctx, span := telemetry.StartTransaction(ctx, "kbstrap.run", "cli.run")
	defer span.End()

	if err := a.resolveCaller(ctx); err != nil {
		span.SetError(err)
		return a.fail(ctx, err)
	}

	result, err := a.bootstrapper.Run(ctx)
	if err != nil {
		span.SetError(err)
		return a.fail(ctx, err)
	}
	handle := result.Handle
	a.logger.Info("knowledge base ready",
		zap.String("knowledge_base_id", handle.ID),
		zap.String("provenance", string(handle.Provenance())),
		zap.Int("ingestion_jobs", len(result.IngestionJobs)),
	)
	telemetry.AddBreadcrumb(ctx, "bootstrap", "knowledge base "+handle.ID+" ready")

	repl := NewREPL(cmd.InOrStdin(), cmd.OutOrStdout(), a.session(handle), a.logger)
	dispatched, err := repl.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("query loop finished", zap.Int("queries", dispatched))

	if err := repl.Demo(ctx, a.cfg.DemoQuery); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}
