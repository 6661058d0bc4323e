package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the orgops configuration
type Config struct {
	GitHub      GitHubConfig      `yaml:"github"`
	Hackathon   HackathonConfig   `yaml:"hackathon,omitempty"`
	Badges      BadgesConfig      `yaml:"badges,omitempty"`
	Maintainers MaintainersConfig `yaml:"maintainers,omitempty"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
}

// GitHubConfig represents GitHub-specific configuration
type GitHubConfig struct {
	Token        string `yaml:"token,omitempty"`
	Organization string `yaml:"organization"`
}

// HackathonConfig describes how hackathon team repositories are provisioned
type HackathonConfig struct {
	Name           string                 `yaml:"name"`
	Template       string                 `yaml:"template"`
	RepoPrefix     string                 `yaml:"repo_prefix,omitempty"`
	Private        bool                   `yaml:"private"`
	Teams          []string               `yaml:"teams,omitempty"`
	TeamPermission string                 `yaml:"team_permission,omitempty"`
	TeamPrivacy    string                 `yaml:"team_privacy,omitempty"`
	Protection     BranchProtectionConfig `yaml:"default_branch_protection,omitempty"`
}

// BranchProtectionConfig is applied to the default branch of provisioned repositories
type BranchProtectionConfig struct {
	Enabled             bool `yaml:"enabled"`
	RequiredReviews     int  `yaml:"required_reviews"`
	DismissStaleReviews bool `yaml:"dismiss_stale_reviews"`
	EnforceAdmins       bool `yaml:"enforce_admins"`
}

// BadgesConfig controls README badge rewriting
type BadgesConfig struct {
	LinkURL      string        `yaml:"link_url"`
	Files        []string      `yaml:"files,omitempty"`
	Branch       string        `yaml:"branch,omitempty"`
	Replacements []Replacement `yaml:"replacements,omitempty"`

	// Stages maps old stage names to new ones, applied after Replacements
	Stages map[string]string `yaml:"stages,omitempty"`
}

// Replacement is an ordered (old, new) text substitution
type Replacement struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// MaintainersConfig controls MAINTAINERS.md generation
type MaintainersConfig struct {
	File         string   `yaml:"file,omitempty"`
	Branch       string   `yaml:"branch,omitempty"`
	Permissions  []string `yaml:"permissions,omitempty"`
	ExcludeUsers []string `yaml:"exclude_users,omitempty"`
}

// RateLimitConfig controls when bulk loops pause for the API quota to reset
type RateLimitConfig struct {
	Threshold int           `yaml:"threshold,omitempty"`
	Buffer    time.Duration `yaml:"buffer,omitempty"`
}

// LoggingConfig controls the run log files
type LoggingConfig struct {
	Dir   string `yaml:"dir,omitempty"`
	Level string `yaml:"level,omitempty"`
}

const (
	DefaultBadgesBranch      = "orgops/badges"
	DefaultMaintainersBranch = "orgops/maintainers"
	DefaultMaintainersFile   = "MAINTAINERS.md"
	DefaultReadme            = "README.md"
	DefaultLogDir            = "logs"
	DefaultTeamPermission    = "push"
	DefaultTeamPrivacy       = "closed"
	DefaultRateThreshold     = 100
	DefaultRateBuffer        = 5 * time.Second
)

var validRoles = map[string]bool{
	"pull": true, "read": true,
	"triage": true,
	"push":   true, "write": true,
	"maintain": true,
	"admin":    true,
}

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath loads configuration from a specific path
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills unset fields with their default values
func (c *Config) ApplyDefaults() {
	if c.Hackathon.TeamPermission == "" {
		c.Hackathon.TeamPermission = DefaultTeamPermission
	}
	if c.Hackathon.TeamPrivacy == "" {
		c.Hackathon.TeamPrivacy = DefaultTeamPrivacy
	}
	if len(c.Badges.Files) == 0 {
		c.Badges.Files = []string{DefaultReadme}
	}
	if c.Badges.Branch == "" {
		c.Badges.Branch = DefaultBadgesBranch
	}
	if c.Maintainers.File == "" {
		c.Maintainers.File = DefaultMaintainersFile
	}
	if c.Maintainers.Branch == "" {
		c.Maintainers.Branch = DefaultMaintainersBranch
	}
	if len(c.Maintainers.Permissions) == 0 {
		c.Maintainers.Permissions = []string{"maintain", "admin"}
	}
	if c.RateLimit.Threshold <= 0 {
		c.RateLimit.Threshold = DefaultRateThreshold
	}
	if c.RateLimit.Buffer <= 0 {
		c.RateLimit.Buffer = DefaultRateBuffer
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = DefaultLogDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// SaveConfig saves configuration to the default location
func (c *Config) SaveConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveConfigToPath(configPath)
}

// SaveConfigToPath saves configuration to a specific path
func (c *Config) SaveConfigToPath(path string) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold a token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".orgops", "config.yaml"), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHub.Organization == "" {
		return fmt.Errorf("GitHub organization is required")
	}

	if c.Hackathon.Template != "" {
		if _, _, err := SplitFullName(c.Hackathon.Template); err != nil {
			return fmt.Errorf("hackathon template: %w", err)
		}
	}

	if !validRoles[c.Hackathon.TeamPermission] {
		return fmt.Errorf("hackathon team_permission %q is not a valid role", c.Hackathon.TeamPermission)
	}

	for i, r := range c.Badges.Replacements {
		if r.Old == "" {
			return fmt.Errorf("badges replacement %d: old value is required", i+1)
		}
		if strings.Contains(r.New, r.Old) {
			return fmt.Errorf("badges replacement %d: new value %q must not contain old value %q", i+1, r.New, r.Old)
		}
	}

	for old, replacement := range c.Badges.Stages {
		if old == "" {
			return fmt.Errorf("badges stages: old value is required")
		}
		if strings.Contains(replacement, old) {
			return fmt.Errorf("badges stage %q: new value %q must not contain the old value", old, replacement)
		}
	}

	for _, p := range c.Maintainers.Permissions {
		if !validRoles[p] {
			return fmt.Errorf("maintainers permission %q is not a valid role", p)
		}
	}

	return nil
}

// SplitFullName splits an "owner/name" repository reference
func SplitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%q must be in owner/name form", fullName)
	}
	return owner, name, nil
}
