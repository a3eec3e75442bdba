package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/ingest"
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import receipts from OFX/QFX statement files",
		Long: `Import spending records from OFX or QFX files exported from your bank.
Debit transactions become receipts; deposits and refunds are skipped.

Examples:
  trail import --user alice ~/Downloads/chase_jan_2024.qfx
  trail import --user alice ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	importCmd.Flags().StringP("user", "u", "", "user id to own the imported receipts (required)")
	_ = importCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	ctx := cmd.Context()

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to import")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ingester := ingest.New(store, nil)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing statements..."),
	)

	total := 0
	for _, file := range files {
		receipts, err := ingester.ImportFile(ctx, file, userID)
		if err != nil {
			return fmt.Errorf("import of %s failed: %w", file, err)
		}
		total += len(receipts)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	count, err := store.ReceiptCount(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Println(answerStyle.Render(
		fmt.Sprintf("Imported %d receipts from %d file(s); %d total on record for %s.",
			total, len(files), count, userID)))
	return nil
}
