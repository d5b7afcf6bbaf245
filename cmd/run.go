package cmd

import (
	"log"

	"github.com/c4vxl/Agora/agora"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the Agora bot and (optionally) the admin API",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := agora.New(cfg)
		if err != nil {
			log.Fatalf("error creating agora: %s", err.Error())
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running agora: %s", err.Error())
		}
	},
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(runCmd)
}
