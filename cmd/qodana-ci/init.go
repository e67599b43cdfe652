package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jetbrains/qodana-ci/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true).
			Margin(1, 0).
			Padding(1, 4)
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create " + config.FileName + " interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flagConfig
			if path == "" {
				path = config.FileName
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists, use --force to overwrite it", path)
			}
			return runWizard(path)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file.")
	return cmd
}

func runWizard(path string) error {
	fmt.Print(titleStyle.Render("🔍 Qodana CI Setup"))
	fmt.Print(headerStyle.Render("Let's configure how Qodana runs in your pipeline."))
	fmt.Println()
	fmt.Println()

	cfg := config.Defaults(os.TempDir())
	// Paths under the temp dir depend on the runner; keep them out of the file.
	defaults := cfg

	analysisForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Qodana CLI version").
				Description("Release of the Qodana CLI to install (e.g., '2025.1.1')").
				Value(&cfg.CliVersion).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("version is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Arguments (optional)").
				Description("Extra arguments of 'qodana scan' (e.g., '--linter jetbrains/qodana-jvm')").
				Value(&cfg.Args),

			huh.NewConfirm().
				Title("Pull request mode").
				Description("Analyze only the files changed by a pull request").
				Value(&cfg.PRMode),
		).Title("📋 Analysis"),
	).WithTheme(huh.ThemeCharm())

	if err := analysisForm.Run(); err != nil {
		return err
	}

	publishForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Pull request comments").
				Description("Post the summary as a pull request comment").
				Value(&cfg.PostPRComment),

			huh.NewConfirm().
				Title("Annotations").
				Description("Publish problems as inline annotations").
				Value(&cfg.UseAnnotations),

			huh.NewConfirm().
				Title("Upload results").
				Description("Upload the results directory as a pipeline artifact").
				Value(&cfg.UploadResult),

			huh.NewSelect[string]().
				Title("Quick fixes").
				Description("Push the fixes applied by Qodana").
				Options(
					huh.NewOption("Don't push", config.PushNone),
					huh.NewOption("Push to the current branch", config.PushBranch),
					huh.NewOption("Open a pull request", config.PushPullRequest),
				).
				Value(&cfg.PushFixes),
		).Title("📝 Publishing"),
	).WithTheme(huh.ThemeCharm())

	if err := publishForm.Run(); err != nil {
		return err
	}

	cacheForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Caches").
				Description("Keep the analyzer caches between runs").
				Value(&cfg.UseCaches),

			huh.NewSelect[string]().
				Title("Cache backend").
				Options(
					huh.NewOption("Runner directory", config.CacheDir),
					huh.NewOption("S3 bucket", config.CacheS3),
				).
				Value(&cfg.CacheBackend),
		).Title("⚙️ Caches"),
	).WithTheme(huh.ThemeCharm())

	if err := cacheForm.Run(); err != nil {
		return err
	}

	if cfg.UseCaches && cfg.CacheBackend == config.CacheS3 {
		if err := collectS3(&cfg.S3); err != nil {
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(path, withoutRunnerPaths(cfg, defaults)); err != nil {
		return err
	}

	fmt.Print(headerStyle.Render("✅ Success! Your configuration has been generated."))
	fmt.Println()
	fmt.Printf("📁 Generated at: %s\n", path)
	fmt.Println()
	fmt.Println("🚀 Next steps:")
	fmt.Println("1. Review the generated file and commit it")
	fmt.Println("2. Try it locally with: qodana-ci local")
	fmt.Println("3. Add 'qodana-ci github', 'qodana-ci gitlab' or 'qodana-ci azure' to your pipeline")
	return nil
}

func collectS3(s3 *config.S3) error {
	fmt.Print(headerStyle.Render("🪣 Configure the S3 cache"))
	fmt.Println()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bucket").
				Value(&s3.Bucket).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("bucket is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Region (optional)").
				Description("Leave empty to use the AWS environment").
				Value(&s3.Region),
			huh.NewInput().
				Title("Endpoint (optional)").
				Description("URL of an S3-compatible service, e.g. MinIO").
				Value(&s3.Endpoint),
			huh.NewInput().
				Title("Key prefix (optional)").
				Value(&s3.Prefix),
		).Title("🪣 S3"),
	).WithTheme(huh.ThemeCharm())

	return form.Run()
}

// withoutRunnerPaths blanks the directories that still hold their defaults,
// so that every runner resolves them under its own temp dir.
func withoutRunnerPaths(cfg, defaults config.Config) config.Config {
	if cfg.ResultsDir == defaults.ResultsDir {
		cfg.ResultsDir = ""
	}
	if cfg.CacheDir == defaults.CacheDir {
		cfg.CacheDir = ""
	}
	if cfg.CacheRoot == defaults.CacheRoot {
		cfg.CacheRoot = ""
	}
	return cfg
}
