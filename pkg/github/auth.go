package github

import (
	"context"
	"fmt"
	"os"
	"strings"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"orgops/pkg/config"
)

// TokenSource names where a token was found
type TokenSource string

const (
	TokenSourceEnv    TokenSource = "GITHUB_TOKEN"
	TokenSourceConfig TokenSource = "config"
	TokenSourceGhCLI  TokenSource = "gh auth token"
)

// CommandResult holds the output of an external command
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner runs external commands such as the gh CLI
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner runs commands with go-execute
type ExecRunner struct{}

// Run executes a command and captures its output
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	task := execute.ExecTask{
		Command: name,
		Args:    args,
	}

	res, err := task.Execute(ctx)
	if err != nil {
		return CommandResult{}, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return CommandResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}, nil
}

// AuthManager handles GitHub authentication
type AuthManager struct {
	client *github.Client
	token  string
	source TokenSource
	runner CommandRunner
	getenv func(string) string
}

// NewAuthManager creates a new authentication manager
func NewAuthManager() *AuthManager {
	return &AuthManager{
		runner: ExecRunner{},
		getenv: os.Getenv,
	}
}

// NewAuthManagerWithRunner creates an authentication manager with a custom command
// runner and environment lookup (for testing)
func NewAuthManagerWithRunner(runner CommandRunner, getenv func(string) string) *AuthManager {
	return &AuthManager{
		runner: runner,
		getenv: getenv,
	}
}

// GetToken retrieves the GitHub token from the environment, the config file or the
// gh CLI authentication state, in that order
func (am *AuthManager) GetToken(ctx context.Context, cfg *config.Config) (string, TokenSource, error) {
	if token := strings.TrimSpace(am.getenv("GITHUB_TOKEN")); token != "" {
		return token, TokenSourceEnv, nil
	}

	if cfg != nil && strings.TrimSpace(cfg.GitHub.Token) != "" {
		return strings.TrimSpace(cfg.GitHub.Token), TokenSourceConfig, nil
	}

	if am.runner != nil {
		res, err := am.runner.Run(ctx, "gh", "auth", "token")
		if err == nil && res.ExitCode == 0 {
			if token := strings.TrimSpace(res.Stdout); token != "" {
				return token, TokenSourceGhCLI, nil
			}
		}
	}

	return "", "", fmt.Errorf("no GitHub token found: set GITHUB_TOKEN, configure github.token in ~/.orgops/config.yaml or run 'gh auth login'")
}

// GetPAT returns the personal access token required by package deletion
func (am *AuthManager) GetPAT() (string, error) {
	pat := strings.TrimSpace(am.getenv("GITHUB_PAT"))
	if pat == "" {
		return "", fmt.Errorf("GITHUB_PAT is not set: package deletion requires a classic personal access token with delete:packages scope")
	}
	return pat, nil
}

// Authenticate sets up the GitHub client with the provided token
func (am *AuthManager) Authenticate(token string) error {
	if token == "" {
		return fmt.Errorf("GitHub token cannot be empty")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	am.client = github.NewClient(tc)
	am.token = token

	return nil
}

// ValidateToken validates the GitHub token and reports its scopes
func (am *AuthManager) ValidateToken(ctx context.Context) (*TokenInfo, error) {
	if am.client == nil {
		return nil, fmt.Errorf("not authenticated: call Authenticate() first")
	}

	user, resp, err := am.client.Users.Get(ctx, "")
	if err != nil {
		return nil, WrapGitHubError(err, "authenticated user")
	}

	scopes := []string{}
	if resp != nil {
		if scopeHeader := resp.Header.Get("X-OAuth-Scopes"); scopeHeader != "" {
			scopes = strings.Split(strings.ReplaceAll(scopeHeader, " ", ""), ",")
		}
	}

	return &TokenInfo{
		User:   user.GetLogin(),
		Scopes: scopes,
		Source: am.source,
	}, nil
}

// MissingScopes returns the required scopes the token lacks. Fine-grained tokens
// report no scopes at all, so an empty scope list is not treated as missing.
func (t *TokenInfo) MissingScopes(required ...string) []string {
	if len(t.Scopes) == 0 {
		return nil
	}

	scopeMap := make(map[string]bool)
	for _, scope := range t.Scopes {
		scopeMap[scope] = true
	}

	var missing []string
	for _, r := range required {
		if !scopeMap[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// Token returns the token used by Authenticate
func (am *AuthManager) Token() string {
	return am.token
}

// TokenInfo contains information about the authenticated token
type TokenInfo struct {
	User   string      `json:"user"`
	Scopes []string    `json:"scopes"`
	Source TokenSource `json:"source"`
}

// AuthenticateFromConfig is a convenience method that handles the full authentication flow
func (am *AuthManager) AuthenticateFromConfig(ctx context.Context, cfg *config.Config) (*TokenInfo, error) {
	token, source, err := am.GetToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := am.Authenticate(token); err != nil {
		return nil, err
	}
	am.source = source

	return am.ValidateToken(ctx)
}

// GetAuthInstructions returns instructions for setting up GitHub authentication
func GetAuthInstructions() string {
	return `GitHub authentication is required. Please set up authentication using one of the following methods:

1. Environment Variable (Recommended for CI/CD):
   export GITHUB_TOKEN="your_personal_access_token"

2. Configuration File:
   Add the following to ~/.orgops/config.yaml:

   github:
     token: "your_personal_access_token"

3. GitHub CLI:
   gh auth login

The token needs the repo, admin:org and read:org scopes. Package deletion additionally
reads GITHUB_PAT, which needs read:packages and delete:packages.`
}
