package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cloo-solutions/kbstrap/internal/cli"
	"github.com/cloo-solutions/kbstrap/internal/cli/kb"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "kbstrap",
		Short: "Bootstrap and query an Amazon Bedrock knowledge base",
		Long: `kbstrap creates or adopts a Bedrock knowledge base backed by S3 and an
OpenSearch Serverless vector collection, then runs an interactive query loop.

Configuration is read from KBSTRAP_* environment variables and an optional .env file:
  KBSTRAP_MODE                  adopt or create (default: create)
  KBSTRAP_KNOWLEDGE_BASE_NAME   knowledge base to adopt
  KBSTRAP_REGION                AWS region (default: SDK default chain)
  KBSTRAP_DATA_DIR              directory uploaded in create mode (default: synthetic_dataset)

Run with --help-json for the full list.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(kb.RunCmd())
	rootCmd.AddCommand(kb.ProbeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "run")
	}

	cli.CheckHelpJSON(rootCmd, os.Args[1:])

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
