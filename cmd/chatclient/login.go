package main

import (
	"fmt"

	"chatroom/internal/client"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print the environment for later commands",
	Long: `Log in and print shell exports for the session token.

Example usage:
  eval "$(chatclient login --username alice --password secret)"
  chatclient login --username alice --password secret --register`,
	RunE: runLogin,
}

var (
	username string
	password string
	register bool
)

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&username, "username", "", "account name (required)")
	loginCmd.Flags().StringVar(&password, "password", "", "account password (required)")
	loginCmd.Flags().BoolVar(&register, "register", false, "create the account first")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	auth := client.NewAuthClient(&fasthttp.Client{Name: "chatclient"}, cfg.ServerURL, cfg.RequestTimeout)

	if register {
		if _, err := auth.Register(ctx, username, password); err != nil {
			return err
		}
	}
	res, err := auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "export CHATROOM_TOKEN=%s\n", res.Token)
	fmt.Fprintf(out, "export CHATROOM_USER_ID=%s\n", res.UserID)
	return nil
}
