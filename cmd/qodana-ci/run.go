package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jetbrains/qodana-ci/internal/cache"
	"github.com/jetbrains/qodana-ci/internal/config"
	"github.com/jetbrains/qodana-ci/internal/install"
	"github.com/jetbrains/qodana-ci/internal/logging"
	"github.com/jetbrains/qodana-ci/internal/pipeline"
	"github.com/jetbrains/qodana-ci/internal/platform"
	"github.com/jetbrains/qodana-ci/pkg/qodana"
)

func newGitHubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "github",
		Short: "Run in a GitHub Actions job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), config.SourceGitHub, func(getenv func(string) string, _ string) (platform.Platform, error) {
				return platform.NewGitHub(getenv, getenv("INPUT_GITHUB-TOKEN"), os.Stdout)
			}, false)
		},
	}
}

func newGitLabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gitlab",
		Short: "Run in a GitLab CI/CD job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), config.SourceGitLab, func(getenv func(string) string, _ string) (platform.Platform, error) {
				return platform.NewGitLab(getenv, "", os.Stdout), nil
			}, true)
		},
	}
}

func newAzureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "azure",
		Short: "Run in an Azure Pipelines job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), config.SourceAzure, func(getenv func(string) string, dir string) (platform.Platform, error) {
				return platform.NewAzure(getenv, dir, os.Stdout), nil
			}, true)
		},
	}
}

func newLocalCmd() *cobra.Command {
	var diffStart string
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run on a local checkout and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), config.SourceLocal, func(func(string) string, string) (platform.Platform, error) {
				return platform.NewLocal(os.Stdout, diffStart), nil
			}, true)
		},
	}
	cmd.Flags().StringVar(&diffStart, "diff-start", "", "Analyze only the changes since this commit.")
	return cmd
}

type platformFactory func(getenv func(string) string, dir string) (platform.Platform, error)

func runPipeline(ctx context.Context, source config.Source, newPlatform platformFactory, diffStyle bool) error {
	cfg, err := config.Load(config.LoadOptions{Source: source, File: flagConfig})
	if err != nil {
		return err
	}

	log, err := logging.New(flagDebug || cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	plat, err := newPlatform(os.Getenv, dir)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Warnf("Caches are disabled: %v", err)
	}

	p := &pipeline.Pipeline{
		Config:   cfg,
		Platform: plat,
		Log:      log,
		Installer: &install.Installer{
			Version:   cfg.CliVersion,
			Nightly:   cfg.UseNightly,
			Checksums: cfg.Checksums,
			Dir:       toolDir(),
		},
		NewRunner: func(binary string) pipeline.Runner {
			return &qodana.Runner{Binary: binary, Dir: dir}
		},
		Store:             store,
		Dir:               dir,
		CoverageDiffStyle: diffStyle,
	}
	log.Infof("Running Qodana %s on %s", cfg.CliVersion, plat.Name())

	code, err := p.Run(ctx)
	if err != nil {
		return &exitError{code: code, err: err}
	}
	return nil
}

func newStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	if !cfg.UseCaches {
		return nil, nil
	}
	switch cfg.CacheBackend {
	case config.CacheS3:
		store, err := cache.NewS3Store(ctx, cache.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Prefix:   cfg.S3.Prefix,
			Endpoint: cfg.S3.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return &cache.DirStore{Root: cfg.CacheRoot}, nil
	}
}

// toolDir is where the CLI is installed, the runner tool cache when the CI
// system provides one.
func toolDir() string {
	for _, env := range []string{"RUNNER_TOOL_CACHE", "AGENT_TOOLSDIRECTORY"} {
		if dir := os.Getenv(env); dir != "" {
			return filepath.Join(dir, "qodana")
		}
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "qodana-ci", "cli")
	}
	return filepath.Join(os.TempDir(), "qodana-ci", "cli")
}
