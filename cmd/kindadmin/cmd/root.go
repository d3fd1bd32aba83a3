package cmd

import (
	"fmt"
	"os"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/config"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg     *config.Config
	logger  *logrus.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "kindadmin",
	Short: "be kind network admin console",
	Long: `kindadmin serves the be kind network administration pages: login,
the actions dashboard and the create action form. It talks to the upstream
be kind network API on behalf of signed in administrators.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	flags.String("server-addr", "", "Server bind address (env: KINDADMIN_SERVER_ADDR)")
	flags.String("api-base-url", "", "Upstream API base URL (env: KINDADMIN_API_BASE_URL)")
	flags.String("db-url", "", "Session database URL; empty keeps sessions in memory (env: KINDADMIN_DATABASE_URL)")
	flags.Bool("debug", false, "Enable debug logging (env: KINDADMIN_DEBUG)")

	for key, flag := range map[string]string{
		"server_addr":  "server-addr",
		"api.base_url": "api-base-url",
		"database_url": "db-url",
		"debug":        "debug",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
