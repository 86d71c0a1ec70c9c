package main

import (
	"fmt"
	"time"

	"ai-interviewer-be/internal/config"
	"ai-interviewer-be/internal/service"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	secretFlag string
	ttlFlag    time.Duration
	userFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "sessiontoken",
	Short: "Issue and inspect realtime session tokens",
	Long: `sessiontoken mints and verifies the short-lived tokens that authorize
a websocket connection to one interview session. The signing secret and
claims default to the values the API server loads from its environment.`,
}

var issueCmd = &cobra.Command{
	Use:   "issue [session-id]",
	Short: "Issue a token for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionId, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		var userId *uuid.UUID
		if userFlag != "" {
			id, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid user id %q", userFlag)
			}
			userId = &id
		}

		issued, err := tokenService().Issue(sessionId, userId)
		if err != nil {
			return err
		}

		color.Green("✅ Token issued for session %s", sessionId)
		fmt.Printf("Expires at: %s (in %s)\n", issued.ExpiresAt.Format(time.RFC3339), issued.ExpiresIn)
		fmt.Println(issued.Token)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [token]",
	Short: "Verify a token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claims, err := tokenService().Verify(args[0])
		if err != nil {
			color.Red("❌ %v", err)
			return err
		}

		color.Green("✅ Token is valid")
		fmt.Printf("Session:    %s\n", claims.SessionId)
		if claims.UserId != nil {
			fmt.Printf("User:       %s\n", *claims.UserId)
		}
		fmt.Printf("Expires at: %s\n", claims.ExpiresAt.Format(time.RFC3339))
		if remaining := time.Until(claims.ExpiresAt); remaining < 5*time.Minute {
			color.Yellow("Token expires in %s", remaining.Round(time.Second))
		}
		return nil
	},
}

func tokenService() service.ITokenService {
	cfg := config.Load()
	secret := cfg.Keys.SessionSecret
	if secretFlag != "" {
		secret = secretFlag
	}
	ttl := cfg.Session.TokenTTL
	if ttlFlag > 0 {
		ttl = ttlFlag
	}
	return service.NewTokenService(service.TokenServiceConfig{
		Secret:   secret,
		TTL:      ttl,
		Issuer:   cfg.Session.Issuer,
		Audience: cfg.Session.Audience,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&secretFlag, "secret", "", "signing secret (defaults to SESSION_SECRET)")
	issueCmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "token lifetime (defaults to SESSION_TOKEN_TTL)")
	issueCmd.Flags().StringVar(&userFlag, "user", "", "user id to embed in the token")

	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(verifyCmd)
}
