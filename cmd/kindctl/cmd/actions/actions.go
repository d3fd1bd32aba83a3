package actions

import (
	"context"

	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/config"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/spf13/cobra"
)

// ActionsCmd is the parent command for action operations
var ActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Manage actions",
	Long:  `Commands for listing and creating be kind network actions.`,
}

func init() {
	ActionsCmd.AddCommand(listCmd)
	ActionsCmd.AddCommand(createCmd)
}

func sdkClient(ctx context.Context) (*sdk.Client, error) {
	cfg := config.MustFromContext(ctx)
	return cfg.ClientProvider.SDKClient(ctx)
}
