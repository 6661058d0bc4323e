package cmd

import (
	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Show the GitHub REST API rate limit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd.Context(), sessionOptions{command: "ratelimit"})
		if err != nil {
			return err
		}
		defer s.Close()

		return printRateLimit(cmd, s.client)
	},
}
