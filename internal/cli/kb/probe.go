package kb

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/spf13/cobra"
)

// ProbeCmd returns the probe command
func ProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report which configured resources exist",
		Long: `Probe the bucket, vector collection and knowledge base named by the current
configuration and print whether each one exists. Nothing is created or modified.`,
		Args: cobra.NoArgs,
		RunE: runProbe,
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	if err := a.resolveCaller(ctx); err != nil {
		return a.fail(ctx, err)
	}

	return probeAll(ctx, a.prober, a.plan, cmd.OutOrStdout())
}

type resourceProber interface {
	Probe(ctx context.Context, kind domain.ResourceKind, name string) (*domain.ResourceDescriptor, error)
}

// probeAll prints one row per named resource. Resources without a configured
// name are skipped.
func probeAll(ctx context.Context, prober resourceProber, plan domain.Plan, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tEXISTENCE\tID")

	for _, kind := range []domain.ResourceKind{
		domain.ResourceKindBucket,
		domain.ResourceKindVectorCollection,
		domain.ResourceKindKnowledgeBase,
	} {
		name := plan.Policy(kind).Name
		if name == "" {
			continue
		}
		desc, err := prober.Probe(ctx, kind, name)
		if err != nil {
			_ = w.Flush()
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, name, desc.Existence, desc.ID)

		if kb, ok := desc.Payload.(*domain.KnowledgeBaseInfo); ok {
			for _, ds := range kb.DataSources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", domain.ResourceKindDataSource, ds.Name, domain.ExistenceFound, ds.ID)
			}
		}
	}
	return w.Flush()
}
