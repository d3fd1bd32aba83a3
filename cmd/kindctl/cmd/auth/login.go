package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/config"
	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	email    string
	password string
)

var validate = forms.NewValidator()

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Exchanges an administrator's email and password for an API token and stores
it in ~/.kindctl/credentials.json.

The password is read from --password, then KINDCTL_PASSWORD, then an
interactive prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		input := forms.LoginForm{Email: strings.TrimSpace(email), Password: password}
		if input.Password == "" {
			input.Password = os.Getenv("KINDCTL_PASSWORD")
		}
		if input.Password == "" && !cfg.NonInteractive {
			secret, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Contraseña")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			input.Password = secret
		}
		if err := validateLogin(input); err != nil {
			return err
		}

		store, err := cfg.ClientProvider.Store()
		if err != nil {
			return fmt.Errorf("failed to create credential store: %w", err)
		}

		result, err := cfg.ClientProvider.AnonymousClient().Login(cmd.Context(), sdk.LoginInput{
			Email:    input.Email,
			Password: input.Password,
		})
		if err != nil {
			return errors.New(sdk.ErrorMessage(err))
		}

		creds := result.Credentials()
		if creds.IsExpired() {
			return errors.New(sdk.MsgTokenRejected)
		}
		if err := store.SaveCredentials(creds); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		pterm.Success.Printf("Logged in as %s (%s)\n", creds.User.Name, creds.User.Email)
		return nil
	},
}

// validateLogin applies the admin login-form rules.
func validateLogin(input forms.LoginForm) error {
	if errs := validate.Struct(input); len(errs) > 0 {
		return errs
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&email, "email", "", "Administrator email")
	loginCmd.Flags().StringVar(&password, "password", "", "Administrator password (env: KINDCTL_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("email")
}
