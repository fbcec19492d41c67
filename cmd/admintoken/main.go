package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/customs-pricing/internal/config"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

var (
	userID string
	ttl    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "admintoken",
	Short: "Выпускает JWT администратора рубрики",
	Long: `admintoken подписывает токен с ролью admin секретом JWT_SECRET из окружения
или .env. Токен передаётся в заголовке Authorization: Bearer <token>
для запросов к /api/admin/*.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := issueAdminToken(userID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&userID, "user", "u", "", "UUID администратора (по умолчанию новый)")
	rootCmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Время жизни токена")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func issueAdminToken(rawUserID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("admintoken: ttl должен быть больше нуля")
	}

	id := uuid.New()
	if rawUserID != "" {
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			return "", fmt.Errorf("admintoken: неверный UUID пользователя: %w", err)
		}
		id = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		return "", err
	}

	return service.NewTokenManager(cfg.JWTSecret).Issue(id, service.RoleAdmin, ttl)
}
