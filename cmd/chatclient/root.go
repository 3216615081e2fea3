package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"chatroom/internal/config"
	"chatroom/internal/logger"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "chatclient",
	Short:   "Terminal chat client",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadClient()
		if err != nil {
			return err
		}
		if s, _ := cmd.Flags().GetString("server"); s != "" {
			c.ServerURL = s
			if err := c.Validate(); err != nil {
				return err
			}
		}
		logger.Init(c.LogLevel, c.LogPretty)
		cfg = c
		return nil
	},
	SilenceUsage: true,
}

// cfg is loaded before any subcommand runs.
var cfg *config.ClientConfig

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().String("server", "", "server URL (overrides SERVER_URL)")
}
