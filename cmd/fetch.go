package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var (
		mode        string
		withAnalyze bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetches a single page and prints it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := resolveEngine(cmd.Context())
			if err != nil {
				return err
			}
			renderMode, err := parseMode(mode)
			if err != nil {
				return err
			}

			page := eng.Fetch(cmd.Context(), args[0], renderMode)
			if err := printJSON(page); err != nil {
				return err
			}
			if withAnalyze && page.OK() {
				if result, ok := eng.Analyze(page); ok {
					return printJSON(result)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "render mode: lightweight, rendered, or auto")
	cmd.Flags().BoolVar(&withAnalyze, "analyze", false, "also run the content analyzer")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		mode        string
		urlFile     string
		withAnalyze bool
	)

	cmd := &cobra.Command{
		Use:   "batch [url...]",
		Short: "Fetches many pages concurrently and prints one result per URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := resolveEngine(cmd.Context())
			if err != nil {
				return err
			}
			renderMode, err := parseMode(mode)
			if err != nil {
				return err
			}

			urls := args
			if urlFile != "" {
				fromFile, err := readURLFile(urlFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given; pass them as arguments or via --file")
			}

			pages := eng.BatchFetch(cmd.Context(), urls, renderMode)
			if err := printJSON(pages); err != nil {
				return err
			}
			if withAnalyze {
				return printJSON(eng.AnalyzeAll(pages))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "render mode: lightweight, rendered, or auto")
	cmd.Flags().StringVar(&urlFile, "file", "", "file with one URL per line")
	cmd.Flags().BoolVar(&withAnalyze, "analyze", false, "also run the content analyzer over successful pages")
	return cmd
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return urls, nil
}
