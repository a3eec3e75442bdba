package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	queryCmd := &cobra.Command{
		Use:   "query [question...]",
		Short: "Ask a question about your spending",
		Long: `Ask free-text questions about your spending.

Examples:
  trail query --user alice "how much did I spend at chick-fil-a last month?"
  trail query --user alice "what's my food spending this year?"
  trail query --user alice "top 3 merchants last 3 months"

  # Interactive session (one question per line, Ctrl-D to exit)
  trail query --user alice --interactive`,
		RunE: runQuery,
	}

	queryCmd.Flags().StringP("user", "u", "", "user id owning the receipts (required)")
	queryCmd.Flags().BoolP("interactive", "i", false, "read questions from stdin")
	_ = queryCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	interactive, _ := cmd.Flags().GetBool("interactive")

	if len(args) == 0 && !interactive {
		return fmt.Errorf("provide a question or use --interactive")
	}

	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resultCache := initCache()
	defer resultCache.Close()

	orchestrator := initOrchestrator(store, resultCache)

	for _, question := range args {
		resp := orchestrator.HandleQuery(ctx, question, userID)
		printAnswer(question, resp.Message)
	}

	if interactive {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print(promptStyle.Render("? "))
		for scanner.Scan() {
			question := strings.TrimSpace(scanner.Text())
			if question != "" {
				resp := orchestrator.HandleQuery(ctx, question, userID)
				printAnswer(question, resp.Message)
			}
			fmt.Print(promptStyle.Render("? "))
		}
		fmt.Println()
		printStats(resultCache.Stats())
	}

	return nil
}

func printAnswer(question, message string) {
	fmt.Println(subtleStyle.Render("> " + question))
	fmt.Println(answerStyle.Render(message))
}
