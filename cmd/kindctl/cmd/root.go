package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindctl/cmd/actions"
	"github.com/Dannaccb/be-kind/cmd/kindctl/cmd/auth"
	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/client"
	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/config"
	"github.com/spf13/cobra"
)

const (
	defaultAPIURL  = "https://dev.api.bekindnetwork.com"
	defaultAuthURL = "https://dev.apinetbo.bekindnetwork.com"
)

var (
	apiURL         string
	authURL        string
	bearerToken    string
	timeout        time.Duration
	nonInteractive bool
)

var rootCmd = &cobra.Command{
	Use:   "kindctl",
	Short: "be kind network CLI",
	Long: `kindctl signs in to the be kind network API and manages actions from the
terminal: list them with paging, search and filters, or create new ones.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("KINDCTL_NON_INTERACTIVE") == "1" {
			nonInteractive = true
		}
		if bearerToken == "" {
			bearerToken = os.Getenv("KINDCTL_TOKEN")
		}

		provider := client.NewProvider(client.Options{
			APIURL:      apiURL,
			AuthURL:     authURL,
			Timeout:     timeout,
			BearerToken: bearerToken,
		})
		cmd.SetContext(config.InjectConfig(cmd.Context(), &config.GlobalConfig{
			APIURL:         apiURL,
			AuthURL:        authURL,
			NonInteractive: nonInteractive,
			ClientProvider: provider,
		}))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL, "be kind network API URL")
	rootCmd.PersistentFlags().StringVar(&authURL, "auth-url", defaultAuthURL, "Authentication API URL")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "Bearer token to use instead of stored credentials (env: KINDCTL_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Disable interactive prompts (also set via KINDCTL_NON_INTERACTIVE=1)")
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(actions.ActionsCmd)
}
