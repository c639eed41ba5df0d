// Package cmd implements the command-line interface for mxindex.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/mxindex/cmd/common"
	"github.com/jonesrussell/mxindex/cmd/discover"
	"github.com/jonesrussell/mxindex/cmd/httpd"
	cmdservers "github.com/jonesrussell/mxindex/cmd/servers"
	"github.com/jonesrussell/mxindex/internal/config"
)

// rootCmd represents the root command for the mxindex CLI.
var rootCmd = &cobra.Command{
	Use:   "mxindex",
	Short: "A federated Matrix homeserver index",
	Long:  `An index of federated Matrix homeservers with probing, search, and discovery.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&common.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("%s version %s\n", config.AppName, config.AppVersion)
		},
	})

	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(discover.Command())
	rootCmd.AddCommand(cmdservers.Command())
}

// initConfig wires viper to the environment and registers defaults.
func initConfig() error {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults()

	if err := config.BindEnv(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	return nil
}
