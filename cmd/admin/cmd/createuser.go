package cmd

import (
	"fmt"
	"strings"

	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	flagUserName     string
	flagUserEmail    string
	flagUserPassword string
	flagUserRole     string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user with the given role",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(flagUserEmail))
		role := models.UserRole(flagUserRole)
		if !models.IsValidRole(role) {
			return fmt.Errorf("invalid role %q: must be admin, editor, or viewer", flagUserRole)
		}
		if len(flagUserPassword) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}

		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("email %s is already registered", email)
		}

		hash, err := utils.HashPassword(flagUserPassword)
		if err != nil {
			return err
		}

		user := models.User{
			Name:         strings.TrimSpace(flagUserName),
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}

		fmt.Printf("created user %s (%s) with role %s\n", user.Name, user.Email, user.Role)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&flagUserName, "name", "", "Display name")
	createUserCmd.Flags().StringVar(&flagUserEmail, "email", "", "Email address")
	createUserCmd.Flags().StringVar(&flagUserPassword, "password", "", "Password (min 8 characters)")
	createUserCmd.Flags().StringVar(&flagUserRole, "role", "viewer", "Role: admin, editor, or viewer")
	createUserCmd.MarkFlagRequired("name")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(createUserCmd)
}
