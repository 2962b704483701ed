package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/byte4ever/runtime_updater/updater/config"
	"github.com/byte4ever/runtime_updater/updater/git"
	"github.com/byte4ever/runtime_updater/updater/mapping"
	"github.com/byte4ever/runtime_updater/updater/summary"
)

// Config holds all settings for one pipeline run. Use a
// Config struct instead of many arguments.
type Config struct {
	// VersionsPath is the location of the runtime
	// versions document.
	VersionsPath string

	// GitHost is the hosting hostname used to build
	// clone and push URLs (e.g. "github.com").
	GitHost string

	// Token authenticates git pushes; it is embedded in
	// the push remote URL, never in the clone URL.
	Token string

	// TargetBranch is the branch cloned from and
	// targeted by created pull requests.
	TargetBranch string

	// RuntimeFilter restricts the run to one runtime
	// name, or "all".
	RuntimeFilter string

	// DryRun suppresses every mutating side effect
	// beyond the summary outputs.
	DryRun bool

	// TmpDir is the directory under which the per-run
	// ephemeral work directory is created.
	TmpDir string

	// SummaryPath is where the markdown summary is
	// written.
	SummaryPath string

	// OutputPath is where the machine output (PR URL or
	// PR count) is written. Empty skips the output.
	OutputPath string

	// ResultsPath is where the JSON results document is
	// written. Empty skips the document.
	ResultsPath string

	// Targets binds runtime names to downstream
	// repositories and files.
	Targets mapping.Table

	// Providers builds a pull request provider per
	// downstream repository.
	Providers git.ProviderFactory

	// CloneURL overrides how a target's clone URL is
	// built. Nil means the anonymous HTTPS URL on
	// GitHost.
	CloneURL func(target mapping.Target) string

	// PushURL overrides how a target's push URL is
	// built. Nil means the HTTPS URL on GitHost with
	// Token embedded.
	PushURL func(target mapping.Target) string
}

// cloneURL returns the remote URL used to clone target.
func (cfg Config) cloneURL(
	target mapping.Target,
) string {
	if cfg.CloneURL != nil {
		return cfg.CloneURL(target)
	}

	return git.RemoteURL(
		cfg.GitHost, target.FullName(),
	)
}

// pushURL returns the remote URL used to push branches
// to target.
func (cfg Config) pushURL(
	target mapping.Target,
) string {
	if cfg.PushURL != nil {
		return cfg.PushURL(target)
	}

	return git.AuthRemoteURL(
		cfg.GitHost, target.FullName(), cfg.Token,
	)
}

// loadSelection loads the versions document and narrows
// it to the runtimes this run will process. Every error
// here is fatal: it happens before any network activity.
func loadSelection(
	cfg Config,
) (map[string]string, error) {
	const errCtx = "selecting runtimes"

	versions, err := config.LoadVersions(
		cfg.VersionsPath,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	eligible := config.Eligible(
		versions, cfg.Targets.Runtimes(),
	)

	selection, err := config.ApplyFilter(
		eligible, cfg.RuntimeFilter,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return selection, nil
}

// sortedRuntimes returns the selection's runtime names in
// deterministic order.
func sortedRuntimes(
	selection map[string]string,
) []string {
	names := make([]string, 0, len(selection))

	for name := range selection {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// runParams echoes the run options into the summary
// header.
func runParams(cfg Config) summary.Params {
	return summary.Params{
		TargetBranch:  cfg.TargetBranch,
		RuntimeFilter: cfg.RuntimeFilter,
		DryRun:        cfg.DryRun,
	}
}

// publication bundles the branch name and generated text
// for one publish call.
type publication struct {
	branch    string
	commitMsg string
	title     string
	body      string
}

// publish creates the branch, commits every staged
// change, pushes with token credentials, and opens the
// pull request. It returns the created request's URL.
// Failures here are local to the repository being
// published.
func publish(
	ctx context.Context,
	cfg Config,
	repo *git.Repo,
	target mapping.Target,
	pub publication,
) (string, error) {
	const errCtx = "publishing changes"

	if err := repo.CheckoutNewBranch(
		pub.branch,
	); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := repo.AddAll(); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := repo.Commit(pub.commitMsg); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := repo.SetRemoteURL(
		cfg.pushURL(target),
	); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := repo.Push(pub.branch); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	provider, err := cfg.Providers(
		target.Owner, target.Repo,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	url, err := provider.CreatePR(
		ctx,
		pub.branch,
		cfg.TargetBranch,
		pub.title,
		pub.body,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return url, nil
}
