package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	updatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	plannedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	totalsStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// runFailedError is returned when at least one repository failed. The summary has
// already been printed, so Execute only sets the exit code.
type runFailedError struct {
	err error
}

func (e *runFailedError) Error() string { return e.err.Error() }
func (e *runFailedError) Unwrap() error { return e.err }

// finish prints the run summary and turns repository failures into the command error
func finish(w io.Writer, title string, results *workflow.Results) error {
	printSummary(w, title, results)
	if results.HasErrors() {
		return &runFailedError{err: results.Err()}
	}
	return nil
}

func printSummary(w io.Writer, title string, results *workflow.Results) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))

	for _, u := range results.Updated {
		line := "✅ " + u.Repo
		if u.Detail != "" {
			line += "  " + u.Detail
		}
		fmt.Fprintln(w, updatedStyle.Render(line))
	}

	for _, p := range results.Planned {
		fmt.Fprintln(w, plannedStyle.Render("📝 "+p.Repo))
		for _, change := range p.Changes {
			fmt.Fprintf(w, "     %s\n", change)
		}
	}

	if reasons := results.SkipReasons(); len(reasons) > 0 {
		keys := make([]string, 0, len(reasons))
		for reason := range reasons {
			keys = append(keys, reason)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, reason := range keys {
			parts = append(parts, fmt.Sprintf("%d %s", reasons[reason], reason))
		}
		fmt.Fprintln(w, skippedStyle.Render("⏭️  skipped: "+strings.Join(parts, ", ")))
	}

	failures := make(map[string]workflow.Failure, len(results.Errors))
	for _, f := range results.Errors {
		failures[f.Repo] = f
	}
	for _, repo := range results.FailedRepos() {
		f := failures[repo]
		fmt.Fprintln(w, failedStyle.Render(fmt.Sprintf("❌ %s [%s]", f.Repo, f.Category)))
		fmt.Fprintf(w, "     %v\n", f.Err)
		if hint := failureHint(f.Err); hint != "" {
			fmt.Fprintln(w, "     "+hint)
		}
	}

	fmt.Fprintln(w, totalsStyle.Render(results.String()))
}

func failureHint(err error) string {
	switch {
	case github.IsAuth(err) || github.Category(err) == string(github.ErrorTypePermission):
		return "check the token scopes with 'orgops auth status'"
	case github.IsRateLimit(err):
		return "rerun once the quota resets; 'orgops auth status' shows the remaining calls"
	}
	return ""
}
