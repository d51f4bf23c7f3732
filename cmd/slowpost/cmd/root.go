package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slowpost",
	Short: "Slowpost is a slow social web service",
	Long: `The Slowpost backend: profiles, subscribers, groups and activity
feeds over a pluggable document store.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
