package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "interviewsim",
	Short:         "Practice technical interviews against your own PDFs",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default http://127.0.0.1:<server.port>)")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, mcpCmd)
	rootCmd.AddCommand(sourcesCmd, uploadCmd, selectCmd, questionCmd, answerCmd, askCmd, sessionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
