package auth

import (
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/config"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		creds, err := cfg.ClientProvider.Credentials()
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("Authentication Status")
		pterm.Info.Printf("User: %s (%s)\n", creds.User.Name, creds.User.Email)

		now := time.Now()
		if left, ok := sdk.TimeUntilExpiration(creds.AccessToken, now); ok {
			pterm.Success.Printf("Token valid, expires %s (%s)\n",
				humanize.RelTime(now.Add(left), now, "ago", "from now"),
				creds.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		}

		validation := sdk.ValidateTokenAt(creds.AccessToken, now)
		pterm.Warning.Printf("Token no longer accepted: %s\n", validation.Error)
		pterm.Info.Println("Run `kindctl auth login` to sign in again.")
		return nil
	},
}
