package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatToken string

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one chat message",
	Long:  `Connect to the realtime endpoint, send a chat message and disconnect.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatToken, "token", "", "access token (overrides realtime.token)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	s, err := newSession(cmd, chatToken)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.Realtime.HandshakeTimeout)
	defer cancel()

	if err := s.manager.Connect(ctx, s.cfg.Realtime.Token); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := s.manager.SendChatMessage(message); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	log := s.log.Component("cli")
	log.Info().Int("length", len(message)).Msg("Chat message sent")
	fmt.Fprintln(cmd.OutOrStdout(), "sent")

	return nil
}
