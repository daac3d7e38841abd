package cmd

import (
	"github.com/carousell/ct-go/pkg/logger/log"
	"github.com/spf13/cobra"

	"github.com/calcula-ai/price-bot/internal/app"
	"github.com/calcula-ai/price-bot/internal/kafka"
	"github.com/calcula-ai/price-bot/internal/liveupdate"
	"github.com/calcula-ai/price-bot/internal/server"
)

var rootCmd = &cobra.Command{
	Use:           "price-bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(
			server.StartServer,
			kafka.StartConsumeMessages,
			liveupdate.Start,
		).Run()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
