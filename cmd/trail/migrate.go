package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(answerStyle.Render("Database schema is up to date."))
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd)
}
