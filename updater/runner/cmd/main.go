// Command update_runtime_versions propagates the runtime
// versions declared in the canonical document out to the
// downstream repositories. It patches the version-bearing
// files, opens pull requests on the configured hosting
// platform, and writes the run summary and machine
// outputs for the invoking automation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/byte4ever/runtime_updater/updater/config"
	"github.com/byte4ever/runtime_updater/updater/git"
	"github.com/byte4ever/runtime_updater/updater/git/github"
	"github.com/byte4ever/runtime_updater/updater/git/gitlab"
	"github.com/byte4ever/runtime_updater/updater/mapping"
	"github.com/byte4ever/runtime_updater/updater/runner"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running update_runtime_versions"

	pipeline := flag.String(
		"pipeline", "",
		"Pipeline to run: annotation or buildarg",
	)
	configPath := flag.String(
		"config", config.DefaultVersionsPath,
		"Path to the runtime versions document",
	)
	tmpDir := flag.String(
		"tmp_dir", os.TempDir(),
		"Temporary directory for clones",
	)

	// Hosting flags.
	gitHost := flag.String(
		"git_host", "github.com",
		"Hostname used for clone and push URLs",
	)
	gitServer := flag.String(
		"git_server", "github",
		"Git hosting platform: github or gitlab",
	)
	ghEnterprise := flag.String(
		"github_enterprise_host", "",
		"GitHub Enterprise hostname",
	)
	glHost := flag.String(
		"gitlab_host", "",
		"GitLab instance URL",
	)

	// Output flags. Empty summary/output values fall
	// back to the pipeline's conventional file names.
	summaryFile := flag.String(
		"summary_file", "",
		"Path for the markdown run summary",
	)
	outputFile := flag.String(
		"output_file", "",
		"Path for the machine output (PR URL or count)",
	)
	resultsFile := flag.String(
		"results_file", "update_results.json",
		"Path for the JSON results document",
	)

	flag.Parse()

	opts, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	providers, err := newProviderFactory(
		*gitServer,
		opts.GitHubToken,
		*ghEnterprise,
		*glHost,
	)
	if err != nil {
		return fmt.Errorf(
			"%s: create provider factory: %w",
			errCtx, err,
		)
	}

	cfg := runner.Config{
		VersionsPath:  *configPath,
		GitHost:       *gitHost,
		Token:         opts.GitHubToken,
		TargetBranch:  opts.TargetBranch,
		RuntimeFilter: opts.RuntimeFilter,
		DryRun:        opts.DryRun,
		TmpDir:        *tmpDir,
		ResultsPath:   *resultsFile,
		Providers:     providers,
	}

	ctx := context.Background()

	switch *pipeline {
	case "annotation":
		cfg.Targets = mapping.AnnotationTargets()
		cfg.SummaryPath = orDefault(
			*summaryFile, "odh_update_summary.md",
		)
		cfg.OutputPath = orDefault(
			*outputFile, "pr_url.txt",
		)

		if err := runner.RunAnnotations(
			ctx, cfg,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

	case "buildarg":
		cfg.Targets = mapping.BuildArgTargets()
		cfg.SummaryPath = orDefault(
			*summaryFile, "vllm_update_summary.md",
		)
		cfg.OutputPath = orDefault(
			*outputFile, "pr_count.txt",
		)

		if err := runner.RunBuildArgs(
			ctx, cfg,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

	default:
		return fmt.Errorf(
			"%s: unknown pipeline %q "+
				"(want annotation or buildarg)",
			errCtx, *pipeline,
		)
	}

	return nil
}

// orDefault returns val, or def when val is empty.
func orDefault(val string, def string) string {
	if val != "" {
		return val
	}

	return def
}

// newProviderFactory selects the hosting platform for
// pull request creation. Pattern: Factory -- selects
// platform implementation at runtime.
func newProviderFactory(
	server string,
	token string,
	ghEnterpriseHost string,
	glHost string,
) (git.ProviderFactory, error) {
	const errCtx = "selecting git server"

	switch server {
	case "github":
		return github.Factory(
			token, ghEnterpriseHost,
		), nil

	case "gitlab":
		return gitlab.Factory(glHost, token), nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown server %q",
			errCtx, server,
		)
	}
}
