package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dimitrije/vesting-api/internal/services"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <principal>",
		Short: "Issue an access token for a principal",
		Long:  "Signs a bearer token with JWT_SECRET (or --secret). The principal is the employer or employee identity the API sees.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("no signing secret: set JWT_SECRET or pass --secret")
			}
			token, err := services.NewJWTService(secret, ttl).GenerateToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	return cmd
}
