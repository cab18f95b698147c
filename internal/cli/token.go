package cli

import (
	"fmt"
	"os"
	"time"

	"plantdoc/internal/auth"
	"plantdoc/internal/model"

	"github.com/spf13/cobra"
)

var (
	tokenUser   string
	tokenRole   string
	tokenSecret string
	tokenTTL    time.Duration
)

// NewTokenCommand creates 'plantdoc token'
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed user token for the plantdoc server",
		RunE:  runToken,
	}
	cmd.Flags().StringVar(&tokenUser, "user", "", "User id (generated when empty)")
	cmd.Flags().StringVar(&tokenRole, "role", "user", "Role: admin, employer or user")
	cmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (default $JWT_SECRET)")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime; 0 never expires")
	return cmd
}

func parseRole(s string) (model.Role, error) {
	for _, r := range []model.Role{model.RoleAdmin, model.RoleEmployer, model.RoleUser} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func runToken(cmd *cobra.Command, args []string) error {
	role, err := parseRole(tokenRole)
	if err != nil {
		return err
	}
	secret := tokenSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	a, err := auth.NewAuthenticator(secret, tokenTTL)
	if err != nil {
		return err
	}
	resp, err := a.Issue(tokenUser, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
	return nil
}
