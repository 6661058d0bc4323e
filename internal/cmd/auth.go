package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orgops/pkg/github"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Commands for checking GitHub authentication",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which token orgops uses and what it can do",
	Long: `Resolve the GitHub token (GITHUB_TOKEN, github.token in the config file, then
'gh auth token'), validate it and print the user, the token scopes and the
current rate limit. GITHUB_PAT, used for package deletion, is checked as well.`,
	RunE: runAuthStatus,
}

// requiredScopes are needed by the organization commands
var requiredScopes = []string{"repo", "admin:org"}

func init() {
	authCmd.AddCommand(authStatusCmd)
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd.Context(), sessionOptions{command: "auth-status"})
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Source: %s\n", s.info.Source)
	if len(s.info.Scopes) == 0 {
		fmt.Fprintln(out, "  Scopes: none reported (fine-grained token)")
	} else {
		fmt.Fprintf(out, "  Scopes: %s\n", strings.Join(s.info.Scopes, ", "))
	}
	if missing := s.info.MissingScopes(requiredScopes...); len(missing) > 0 {
		fmt.Fprintf(out, "⚠️  Missing scopes: %s\n", strings.Join(missing, ", "))
	}

	if err := printRateLimit(cmd, s.client); err != nil {
		return err
	}

	if _, err := github.NewAuthManager().GetPAT(); err != nil {
		fmt.Fprintln(out, "ℹ️  GITHUB_PAT not set: 'orgops packages delete' is unavailable")
	} else {
		fmt.Fprintln(out, "✓ GITHUB_PAT is set")
	}

	return nil
}

func printRateLimit(cmd *cobra.Command, client *github.Client) error {
	status, err := client.RateLimit(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read rate limit: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  Rate limit: %d/%d remaining, resets %s (in %s)\n",
		status.Remaining, status.Limit,
		status.Reset.Local().Format(time.Kitchen),
		time.Until(status.Reset).Round(time.Second))
	return nil
}
