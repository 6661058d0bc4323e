package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orgops/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize orgops configuration",
	Long:  "Create a default configuration file for orgops at ~/.orgops/config.yaml or at --config",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file without asking")
}

// defaultConfig is written by init
func defaultConfig() *config.Config {
	cfg := &config.Config{
		GitHub: config.GitHubConfig{
			Organization: "your-org",
		},
		Hackathon: config.HackathonConfig{
			Name:       "Hackathon",
			Template:   "your-org/hackathon-template",
			RepoPrefix: "hack-",
			Private:    true,
			Protection: config.BranchProtectionConfig{
				Enabled:         true,
				RequiredReviews: 1,
			},
		},
		Badges: config.BadgesConfig{
			LinkURL: "https://github.com/your-org/.github/blob/main/MATURITY.md",
		},
		Maintainers: config.MaintainersConfig{
			ExcludeUsers: []string{"dependabot[bot]"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "⚠️  Configuration file already exists at: %s\n", path)
		fmt.Fprint(out, "Do you want to overwrite it? (y/N): ")
		if !confirmed(cmd.InOrStdin()) {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	if err := defaultConfig().SaveConfigToPath(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "📝 Please edit the file to set your organization, hackathon template and badge link.")

	return nil
}

func confirmed(in io.Reader) bool {
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}
