package cmd

import (
	"fmt"
	"os"

	"github.com/mdcollab/backend/internal/config"
	"github.com/mdcollab/backend/internal/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var db *gorm.DB

var rootCmd = &cobra.Command{
	Use:   "mdcollab-admin",
	Short: "Administrative tasks against the mdcollab database",
	Long: `mdcollab-admin runs maintenance commands directly against the
database, without going through the API server.

Examples:
  mdcollab-admin create-user --name "Jo Doe" --email jo@example.com --password secret123 --role editor
  mdcollab-admin bulk-publish --folder 4f2c... --published=false`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		var err error
		db, err = database.Connect(cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		return nil
	},
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
