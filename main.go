package main

import (
	"os"

	"github.com/joyvchen/birdride/cmd"
	"github.com/joyvchen/birdride/internal/conf"
	"github.com/joyvchen/birdride/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading configuration", "error", err)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
