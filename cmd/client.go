package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/upstream"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultClientTimeout = 30 * time.Second

var (
	gatewayURL    string
	clientTimeout time.Duration
)

func newGatewayClient() *upstream.GatewayClient {
	return upstream.NewGatewayClient(gatewayURL, clientTimeout)
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a .txt file and print its statistics or its duplicate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return uploadFile(cmd.Context(), newGatewayClient(), args[0])
		},
	}
}

func uploadFile(ctx context.Context, client *upstream.GatewayClient, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	result, err := client.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return describe(err)
	}
	if result.DuplicateOf != "" {
		color.Yellow("Duplicate of %s", result.DuplicateOf)
		return nil
	}
	color.Green("Stored as %s", result.FileID)
	if result.Stats != nil {
		printStats(*result.Stats)
	}
	return nil
}

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFiles(cmd.Context(), newGatewayClient())
		},
	}
}

func listFiles(ctx context.Context, client *upstream.GatewayClient) error {
	list, err := client.Files(ctx)
	if err != nil {
		return describe(err)
	}
	if len(list.Files) == 0 {
		color.Yellow("No files stored")
		return nil
	}
	for _, f := range list.Files {
		line := fmt.Sprintf("%s  %-30s %8.2f KB  %s", f.ID, f.Filename, float64(f.Size)/1024, f.UploadDate.Format(time.RFC3339))
		if f.Duplicate {
			color.Yellow("%s  (duplicate)", line)
			continue
		}
		fmt.Println(line)
	}
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newGatewayClient().Delete(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			color.Green("Deleted %s", args[0])
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file-id>",
		Short: "Print paragraph, word and character counts of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := newGatewayClient().Stats(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			printStats(stats.Statistics)
			return nil
		},
	}
}

func newCompareCmd() *cobra.Command {
	var texts bool
	cmd := &cobra.Command{
		Use:   "compare <file-id> <file-id>",
		Short: "Compare two stored files, or two literal texts with --text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newGatewayClient()
			var (
				result models.ComparisonResult
				err    error
			)
			if texts {
				result, err = client.CompareText(cmd.Context(), args[0], args[1])
			} else {
				result, err = client.Compare(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return describe(err)
			}
			printComparison(result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&texts, "text", false, "Treat the arguments as texts instead of file ids")
	return cmd
}

func newCloudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cloud <file-id>",
		Short: "Print the word cloud image URL of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cloud, err := newGatewayClient().Cloud(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			fmt.Println(cloud.WordCloudURL)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the health of the gateway and its upstreams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printHealth(cmd.Context(), newGatewayClient())
		},
	}
}

func printHealth(ctx context.Context, client *upstream.GatewayClient) error {
	report, err := client.HealthReport(ctx)
	if err != nil {
		return describe(err)
	}
	for _, name := range []string{"gateway", "storage", "analysis"} {
		if report[name] == "ok" {
			color.Green("%-9s ok", name)
		} else {
			color.Red("%-9s %s", name, report[name])
		}
	}
	return nil
}

func printStats(s models.Statistics) {
	color.Cyan("Paragraphs:       %d", s.Paragraphs)
	color.Cyan("Words:            %d", s.Words)
	color.Cyan("Characters:       %d", s.Chars)
	color.Cyan("Characters (no whitespace): %d", s.CharsNoSpaces)
}

func printComparison(r models.ComparisonResult) {
	if r.Identical {
		color.Green("Identical (similarity %.3f)", r.Similarity)
		return
	}
	switch {
	case r.Similarity >= 0.8:
		color.Red("Similarity %.3f", r.Similarity)
	case r.Similarity >= 0.5:
		color.Yellow("Similarity %.3f", r.Similarity)
	default:
		fmt.Printf("Similarity %.3f\n", r.Similarity)
	}
}

// describe turns a gateway error into the message the user should see.
func describe(err error) error {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return fmt.Errorf("%s (%d)", statusErr.Message, statusErr.Status)
	}
	if errors.Is(err, upstream.ErrUnavailable) || errors.Is(err, upstream.ErrTimeout) {
		return fmt.Errorf("gateway at %s is not reachable: %w", gatewayURL, err)
	}
	return err
}
