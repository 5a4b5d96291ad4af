package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joyvchen/birdride/cmd/route"
	"github.com/joyvchen/birdride/cmd/serve"
	"github.com/joyvchen/birdride/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "birdride",
		Short: "Bird sightings along a travel route",
		Long:  "BirdRide aggregates recent and notable bird sightings reported near a travel route.",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		rootCmd.PrintErrf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		route.Command(settings),
		serve.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.EBird.APIKey, "apikey", viper.GetString("ebird.apikey"), "eBird API key")
	rootCmd.PersistentFlags().StringVar(&settings.EBird.Locale, "locale", viper.GetString("ebird.locale"), "Locale for species common names")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
