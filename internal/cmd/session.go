package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"orgops/internal/logging"
	"orgops/pkg/config"
	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

// session holds what every organization command needs: configuration, an
// authenticated client with its rate-limit guard, and the run logger.
type session struct {
	cfg      *config.Config
	org      string
	info     *github.TokenInfo
	client   *github.Client
	guard    *github.RateLimitGuard
	logger   *slog.Logger
	closeLog func() error
}

type sessionOptions struct {
	// command names the log file
	command string
	// requireOrg validates the full configuration, organization included
	requireOrg bool
	// usePAT authenticates with GITHUB_PAT instead of the usual token chain
	usePAT bool
}

// loadConfig reads the configuration file and applies the global flags over it
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfigFromPath(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if orgFlag != "" {
		cfg.GitHub.Organization = orgFlag
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	return cfg, nil
}

func newSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if opts.requireOrg {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.Setup(afero.NewOsFs(), cfg.Logging.Dir, opts.command, level, os.Stderr)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		org:      cfg.GitHub.Organization,
		logger:   logger,
		closeLog: closeLog,
	}

	if err := s.authenticate(ctx, opts.usePAT); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *session) authenticate(ctx context.Context, usePAT bool) error {
	authManager := github.NewAuthManager()

	var token string
	if usePAT {
		pat, err := authManager.GetPAT()
		if err != nil {
			return err
		}
		if err := authManager.Authenticate(pat); err != nil {
			return err
		}
		if s.info, err = authManager.ValidateToken(ctx); err != nil {
			return fmt.Errorf("GITHUB_PAT rejected: %w", err)
		}
		token = pat
	} else {
		info, err := authManager.AuthenticateFromConfig(ctx, s.cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Authentication failed: %v\n\n%s\n\n", err, github.GetAuthInstructions())
			return err
		}
		s.info = info
		token = authManager.Token()
	}

	s.logger.Info("authenticated", "user", s.info.User, "source", string(s.info.Source))
	fmt.Printf("✓ Authenticated as %s\n", s.info.User)

	s.guard = github.NewRateLimitGuard(&github.GuardConfig{
		Threshold: s.cfg.RateLimit.Threshold,
		Buffer:    s.cfg.RateLimit.Buffer,
	}, nil)
	s.guard.OnWait = func(remaining int, wait time.Duration) {
		s.logger.Warn("rate limit low, waiting for reset", "remaining", remaining, "wait", wait.String())
		fmt.Printf("⏳ Rate limit low (%d remaining), waiting %s\n", remaining, wait.Round(time.Second))
	}

	s.client = github.NewClient(token).WithGuard(s.guard)
	s.guard.SetSource(s.client)

	return nil
}

// loop returns a repository loop for total repositories and a function that finishes
// its progress bar
func (s *session) loop(total int) (*workflow.Loop, func()) {
	loop := workflow.NewLoop(s.guard, s.logger)

	bar := newProgress(total, os.Stdout)
	if bar == nil {
		return loop, func() {}
	}
	return loop.WithProgress(bar), bar.Finish
}

// Close flushes the log file
func (s *session) Close() {
	if s.closeLog != nil {
		_ = s.closeLog()
	}
}
