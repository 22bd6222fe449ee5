package main

import (
	"fmt"
	"time"

	"quest-bot/internal/config"
	sharedMiddleware "quest-bot/shared/middleware"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var (
		subject  string
		chatID   int64
		validity time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить JWT для admin API (admin_jwt_secret) или для веб-чата с --chat-id (chat_token_secret)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if chatID != 0 {
				if cfg.ChatTokenSecret == "" {
					return fmt.Errorf("секрет chat_token_secret не найден в %s", cfg.SecretsDir)
				}
				token, err := sharedMiddleware.GenerateChatJWT(chatID, cfg.ChatTokenSecret, validity)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			if !cfg.AdminEnabled() {
				return fmt.Errorf("секрет admin_jwt_secret не найден в %s", cfg.SecretsDir)
			}
			token, err := sharedMiddleware.GenerateAdminJWT(subject, cfg.AdminJWTSecret, validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "subject токена")
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "выпустить токен веб-чата для этого chat id")
	cmd.Flags().DurationVar(&validity, "ttl", 24*time.Hour, "срок действия токена")
	return cmd
}
