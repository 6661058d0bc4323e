package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orgops/pkg/badge"
	"orgops/pkg/config"
	"orgops/pkg/fuzzy"
	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

var (
	badgesFlags   prFlags
	badgesLinkURL string
)

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Rewrite README badges through pull requests",
	Long: `Rewrite badge images such as ![badge-labs](https://host/labs.svg) in the
configured files (badges.files, default README.md): apply the ordered
badges.replacements, then the badges.stages map sorted by old name, inside
badge markup and wrap unlinked badges in a link to the badge link URL. A pull
request is opened for each repository that changes.

The link URL comes from --link-url, then BADGE_LINK_URL, then badges.link_url.

Examples:
  orgops badges --filter '^lib-' --dry-run
  orgops badges --select`,
	RunE: runBadges,
}

func init() {
	addPRFlags(badgesCmd, &badgesFlags)
	badgesCmd.Flags().StringVar(&badgesLinkURL, "link-url", "", "URL unlinked badges are wrapped with")
}

// badgeRewriter builds the rewriter from flags, environment and configuration
func badgeRewriter(cfg config.BadgesConfig, getenv func(string) string) (*badge.Rewriter, error) {
	linkURL := badgesLinkURL
	if linkURL == "" {
		linkURL = strings.TrimSpace(getenv("BADGE_LINK_URL"))
	}
	if linkURL == "" {
		linkURL = cfg.LinkURL
	}

	replacements := make([]badge.Replacement, 0, len(cfg.Replacements)+len(cfg.Stages))
	for _, r := range cfg.Replacements {
		replacements = append(replacements, badge.Replacement{Old: r.Old, New: r.New})
	}
	replacements = append(replacements, badge.ReplacementsFromMap(cfg.Stages)...)

	if linkURL == "" && len(replacements) == 0 {
		return nil, fmt.Errorf("nothing to do: set a badge link URL, badges.replacements or badges.stages")
	}

	return badge.New(linkURL, replacements)
}

func runBadges(cmd *cobra.Command, _ []string) error {
	if err := badgesFlags.selection.Validate(); err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), sessionOptions{command: "badges", requireOrg: true})
	if err != nil {
		return err
	}
	defer s.Close()

	rewriter, err := badgeRewriter(s.cfg.Badges, os.Getenv)
	if err != nil {
		return err
	}

	repos, err := selectRepositories(cmd.Context(), s, &badgesFlags, fuzzy.NewFzf("🔍 Select repository:"))
	if err != nil {
		return err
	}
	fmt.Printf("🏷️  Checking badges in %d repository(ies)\n", len(repos))

	files := make([]workflow.FileTarget, 0, len(s.cfg.Badges.Files))
	for _, f := range s.cfg.Badges.Files {
		files = append(files, workflow.FileTarget{Path: f})
	}

	mutation := workflow.Mutation{
		Files:         files,
		Transform:     loggedTransform(rewriter, s.logger),
		Branch:        s.cfg.Badges.Branch,
		CommitMessage: "Update badges",
		Title:         "Update badges",
		Body:          badgesBody(rewriter),
	}

	results := workflow.NewResults()
	err = runMutations(cmd.Context(), s, &badgesFlags, repos, results, func(context.Context, github.Repository) (workflow.Mutation, bool, error) {
		return mutation, true, nil
	})
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Badges", results)
}

// loggedTransform records the badges seen in each file before rewriting it
func loggedTransform(r *badge.Rewriter, logger *slog.Logger) workflow.Transform {
	return func(path, content string) (string, bool) {
		logger.Debug("badges found", "path", path, "badges", badge.Find(content))
		return r.Transform(path, content)
	}
}

func badgesBody(r *badge.Rewriter) string {
	var b strings.Builder
	b.WriteString("This pull request updates the badges in this repository.\n")
	if len(r.Replacements) > 0 {
		b.WriteString("\nReplaced:\n")
		for _, rep := range r.Replacements {
			fmt.Fprintf(&b, "- `%s` with `%s`\n", rep.Old, rep.New)
		}
	}
	if r.LinkURL != "" {
		fmt.Fprintf(&b, "\nUnlinked badges now link to %s.\n", r.LinkURL)
	}
	return b.String()
}
