package main

import (
	"errors"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var shellActions = []string{
	"Upload file",
	"List files",
	"File statistics",
	"Compare files",
	"Compare texts",
	"Word cloud",
	"Delete file",
	"Health",
	"Exit",
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive menu over the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newGatewayClient()
			color.Cyan("textscan shell, gateway %s", gatewayURL)

			for {
				sel := promptui.Select{
					Label: "Choose an action (Ctrl+C to quit)",
					Items: shellActions,
					Size:  len(shellActions),
				}
				idx, _, err := sel.Run()
				if err != nil || shellActions[idx] == "Exit" {
					color.Green("Bye")
					return nil
				}

				switch shellActions[idx] {
				case "Upload file":
					var path string
					if path, err = ask("Path to .txt file"); err == nil {
						err = uploadFile(ctx, client, path)
					}
				case "List files":
					err = listFiles(ctx, client)
				case "File statistics":
					var id string
					if id, err = ask("File id"); err == nil {
						stats, serr := client.Stats(ctx, id)
						if err = serr; err == nil {
							printStats(stats.Statistics)
						}
					}
				case "Compare files":
					var a, b string
					if a, err = ask("First file id"); err == nil {
						if b, err = ask("Second file id"); err == nil {
							result, cerr := client.Compare(ctx, a, b)
							if err = cerr; err == nil {
								printComparison(result)
							}
						}
					}
				case "Compare texts":
					var a, b string
					if a, err = ask("First text"); err == nil {
						if b, err = ask("Second text"); err == nil {
							result, cerr := client.CompareText(ctx, a, b)
							if err = cerr; err == nil {
								printComparison(result)
							}
						}
					}
				case "Word cloud":
					var id string
					if id, err = ask("File id"); err == nil {
						cloud, cerr := client.Cloud(ctx, id)
						if err = cerr; err == nil {
							color.Cyan("%s", cloud.WordCloudURL)
						}
					}
				case "Delete file":
					var id string
					if id, err = ask("File id"); err == nil {
						if err = client.Delete(ctx, id); err == nil {
							color.Green("Deleted %s", id)
						}
					}
				case "Health":
					err = printHealth(ctx, client)
				}

				if errors.Is(err, promptui.ErrInterrupt) {
					color.Green("Bye")
					return nil
				}
				if err != nil && !errors.Is(err, promptui.ErrAbort) {
					color.Red("%v", describe(err))
				}
			}
		},
	}
}

func ask(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("value is required")
			}
			return nil
		},
	}
	value, err := prompt.Run()
	return strings.TrimSpace(value), err
}
