package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RishiKendai/textscan/internal/configs/env"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "textscan: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "textscan",
		Short: "Text file storage, duplicate detection and similarity analysis",
		Long: `textscan runs the storage, analysis and gateway services and talks to a
running gateway from the command line.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&gatewayURL, "gateway", env.GetEnv("GATEWAY_URL", "http://localhost:8080"), "Gateway base URL for client commands")
	cmd.PersistentFlags().DurationVar(&clientTimeout, "timeout", defaultClientTimeout, "Timeout for client requests")

	cmd.AddCommand(
		newServeCmd(),
		newUploadCmd(),
		newFilesCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newCompareCmd(),
		newCloudCmd(),
		newHealthCmd(),
		newShellCmd(),
	)
	return cmd
}
