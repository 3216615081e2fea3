package main

import (
	"os"

	"chatroom/internal/app"
	"chatroom/internal/models"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a conversation and chat from the terminal",
	Long: `Open a direct or room conversation. Every line typed is sent as a message.

Commands:
  /open <id> [direct|room]  switch conversation
  /close                    leave the conversation
  /quit                     exit`,
	RunE: runOpen,
}

var (
	chatID   string
	chatType string
)

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringVar(&chatID, "chat", "", "user id for direct chats, room id for rooms (required)")
	openCmd.Flags().StringVar(&chatType, "type", "direct", "conversation type: direct or room")
	_ = openCmd.MarkFlagRequired("chat")
}

func runOpen(cmd *cobra.Command, args []string) error {
	t, ok := models.ParseChatType(chatType)
	if !ok {
		return errors.Errorf("unknown chat type %q", chatType)
	}
	return app.RunClient(cmd.Context(), app.ClientOptions{
		Config: cfg,
		ChatID: chatID,
		Type:   t,
		In:     os.Stdin,
		Out:    cmd.OutOrStdout(),
	})
}
