package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/roaster/internal/domain/entities"
)

func newScanCmd() *cobra.Command {
	var (
		repoURL  string
		path     string
		format   string
		minScore int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Roast one repository or local directory",
		Long: `Run every scanner once and print the score, roast, findings and fixes.

A --repo is cloned into TEMP_DIR and deleted afterwards. A --path is scanned
in place and never modified.`,
		Example: `  roaster scan --repo https://github.com/octocat/Hello-World
  roaster scan --path . --format text
  roaster scan --path . --min-score 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("unknown --format %q (want json or text)", format)
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			a := newApp(cfg, logger)
			defer a.close()

			ctx, cancel := a.roastTimeout(cmd.Context())
			defer cancel()

			var result *entities.ScanResult
			if repoURL != "" {
				result, err = a.roaster.PerformRoast(ctx, repoURL)
			} else {
				result, err = a.roaster.RoastDirectory(ctx, path)
			}
			if err != nil {
				return err
			}

			if err := writeResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}

			if minScore > 0 && result.Score < minScore {
				return fmt.Errorf("score %d is below the minimum of %d", result.Score, minScore)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repoURL, "repo", "", "GitHub repository URL to clone and scan")
	cmd.Flags().StringVar(&path, "path", "", "local directory to scan in place")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or text")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "exit non-zero when the score is below this value")
	cmd.MarkFlagsMutuallyExclusive("repo", "path")
	cmd.MarkFlagsOneRequired("repo", "path")

	return cmd
}

func writeResult(w io.Writer, result *entities.ScanResult, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d/10\n\n%s\n", result.Score, result.Roast)

	if len(result.Findings) > 0 {
		fmt.Fprintf(&b, "\nFindings (%d):\n", len(result.Findings))
		for _, f := range result.Findings {
			location := f.FilePath
			if f.Line() > 0 {
				location = fmt.Sprintf("%s:%d", f.FilePath, f.Line())
			}
			fmt.Fprintf(&b, "  [%s] %s  %s\n", strings.ToUpper(f.Severity.String()), f.Kind, location)
			fmt.Fprintf(&b, "      %s\n", f.Description)
		}
	}

	if len(result.SuggestedFixes) > 0 {
		b.WriteString("\nSuggested fixes:\n")
		for _, fix := range result.SuggestedFixes {
			fmt.Fprintf(&b, "  - %s: %s\n", fix.FindingType, fix.Fix)
		}
	}

	fmt.Fprintf(&b, "\nScanned %s at %s\n", result.RepoURL, result.ScanTimestamp)

	_, err := io.WriteString(w, b.String())
	return err
}
