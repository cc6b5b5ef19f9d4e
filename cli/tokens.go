package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pagetags/auth"
)

// expiryLayouts are the accepted --expires-at formats.
var expiryLayouts = []string{time.RFC3339, "2006-01-02"}

func parseExpiry(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --expires-at %q, use YYYY-MM-DD or RFC 3339", raw)
}

func newTokensCommand(load configLoader) *cobra.Command {
	tokens := &cobra.Command{
		Use:   "tokens",
		Short: "Manage API tokens",
	}

	var (
		username  string
		expiresAt string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an API token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry, err := parseExpiry(expiresAt)
			if err != nil {
				return err
			}
			if !expiry.IsZero() && expiry.Before(time.Now()) {
				return fmt.Errorf("--expires-at %s is in the past", expiresAt)
			}

			conf, err := load()
			if err != nil {
				return err
			}
			s, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := s.GetUserByUsername(cmd.Context(), username)
			if err != nil {
				return err
			}

			issuer := auth.NewTokenIssuer(conf.JWT.Secret, time.Duration(conf.JWT.ExpireHours)*time.Hour)
			token, err := issuer.IssueUntil(user.ID, user.JTI, expiry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "user the token is issued for")
	create.Flags().StringVar(&expiresAt, "expires-at", "", "expiry as YYYY-MM-DD or RFC 3339, never when omitted")
	create.MarkFlagRequired("username")

	tokens.AddCommand(create)
	return tokens
}
