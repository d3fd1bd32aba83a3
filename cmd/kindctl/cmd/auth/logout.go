package auth

import (
	"fmt"

	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/config"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		store, err := cfg.ClientProvider.Store()
		if err != nil {
			return fmt.Errorf("failed to create credential store: %w", err)
		}
		if err := store.DeleteCredentials(); err != nil {
			return fmt.Errorf("failed to delete credentials: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully")
		return nil
	},
}
