// Package cli defines the cobra command tree for house-market.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/client"
	"github.com/evcraddock/house-market/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hm",
		Short:         "Buy, sell and browse homes",
		Long:          "A real-estate marketplace. Run the server, or browse listings, save favorites, send inquiries and book viewings from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/hm/market.db)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSignUpCmd(),
		newConfirmCmd(),
		newResetCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newToggleCmd("favorite", "favorites"),
		newToggleCmd("catalogue", "catalogue"),
		newSavedCmd(),
		newInquireCmd(),
		newInquiriesCmd(),
		newViewingCmd(),
		newViewingsCmd(),
		newDashboardCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the house-market API using the
// stored tokens. Refreshed tokens are written back to the config file.
func newAPIClient() *client.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return client.New(getServerURL(),
		client.WithTokens(cfg.tokens()),
		client.OnRefresh(saveTokens),
	)
}

// saveTokens persists refreshed tokens, keeping the other config fields.
func saveTokens(t client.Tokens) {
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}
	cfg.setTokens(t)
	if err := saveConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: saving refreshed tokens: %v\n", err)
	}
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
