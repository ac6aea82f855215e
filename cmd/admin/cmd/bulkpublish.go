package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/internal/services"
	"github.com/spf13/cobra"
)

var (
	flagPublishFolder string
	flagPublished     bool
)

var bulkPublishCmd = &cobra.Command{
	Use:   "bulk-publish",
	Short: "Set the published flag on a folder subtree, or on root-level files",
	RunE: func(cmd *cobra.Command, args []string) error {
		var folderID *uuid.UUID
		if flagPublishFolder != "" {
			id, err := uuid.Parse(flagPublishFolder)
			if err != nil {
				return fmt.Errorf("invalid folder id: %w", err)
			}
			folderID = &id
		}

		// The service wants an acting admin; use the first one on record.
		var admin models.User
		if err := db.First(&admin, "role = ?", models.UserRoleAdmin).Error; err != nil {
			return fmt.Errorf("no admin user found: %w", err)
		}

		tree := services.NewTreeService(db)
		modified, err := tree.BulkPublish(context.Background(), &admin, folderID, flagPublished)
		if err != nil {
			return err
		}

		fmt.Printf("updated published=%v on %d files\n", flagPublished, modified)
		return nil
	},
}

func init() {
	bulkPublishCmd.Flags().StringVar(&flagPublishFolder, "folder", "", "Folder id (empty targets root-level files)")
	bulkPublishCmd.Flags().BoolVar(&flagPublished, "published", true, "Published value to set")

	rootCmd.AddCommand(bulkPublishCmd)
}
