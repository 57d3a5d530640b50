package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Create the database if needed and apply any pending migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	v, err := db.Version(database)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]int64{"version": v})
	}
	fmt.Printf("Database is at version %d\n", v)
	return nil
}
