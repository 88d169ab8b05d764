// Command shopchat-token registers a directory user if needed and prints an
// access token for it. It talks to the database directly and is meant for
// development and seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/config"
	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg/logger"
	"github.com/akinalp/shopchat/repository"
	"github.com/akinalp/shopchat/services"
)

var (
	displayName string
	subject     string
	orderRef    string
	with        []string
)

var rootCmd = &cobra.Command{
	Use:   "shopchat-token <username>",
	Short: "Issue a shopchat access token for a directory user",
	Long: `shopchat-token looks the user up by username, registers it when
missing, and prints a signed access token on stdout. With --conversation it
also opens a conversation owned by that user.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVarP(&displayName, "display-name", "n", "", "display name used when the user is created (default: username)")
	rootCmd.Flags().StringVarP(&subject, "conversation", "c", "", "also open a conversation with this subject")
	rootCmd.Flags().StringVar(&orderRef, "order", "", "order reference for the new conversation")
	rootCmd.Flags().StringSliceVarP(&with, "with", "w", nil, "usernames to add to the new conversation")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error.
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	username := args[0]
	if displayName == "" {
		displayName = username
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel).Named("token")
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	userService := services.NewUserService(userRepo, cfg.Directory.CacheTTL, log)
	defer userService.Close()
	authService := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	user, err := userService.Ensure(ctx, &models.CreateUserRequest{Username: username, DisplayName: displayName})
	if err != nil {
		return fmt.Errorf("failed to ensure user %q: %w", username, err)
	}

	token, err := authService.IssueAccessToken(user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if subject != "" {
		convID, err := openConversation(ctx, db, userRepo, user.ID, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", convID)
	}

	log.Info("token issued", zap.String("user_id", user.ID), zap.Duration("expires_in", cfg.JWT.AccessTokenExpiry))
	fmt.Fprintf(cmd.ErrOrStderr(), "user: %s (%s)\n", user.ID, user.DisplayName)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func openConversation(ctx context.Context, db *database.DB, userRepo repository.UserRepository, ownerID string, log *zap.Logger) (string, error) {
	req := &models.CreateConversationRequest{Subject: subject}
	if orderRef != "" {
		req.OrderRef = &orderRef
	}
	for _, name := range with {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		member, err := userRepo.GetByUsername(ctx, name)
		if err != nil {
			return "", fmt.Errorf("unknown member %q: %w", name, err)
		}
		req.MemberIDs = append(req.MemberIDs, member.ID)
	}

	convService := services.NewConversationService(db.Conn, repository.NewSQLiteConversationRepo(db.Conn), log)
	conv, err := convService.Create(ctx, ownerID, req)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv.ID, nil
}
