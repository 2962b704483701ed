package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/byte4ever/runtime_updater/updater/commitmsg"
	"github.com/byte4ever/runtime_updater/updater/git"
	"github.com/byte4ever/runtime_updater/updater/patch"
	"github.com/byte4ever/runtime_updater/updater/summary"
)

// RunBuildArgs executes the Dockerfile build-argument
// pipeline: each selected runtime has its own downstream
// repository and gets its own branch and pull request.
// Runtimes are processed strictly in order; one runtime's
// failure never aborts its siblings. The summary and
// machine outputs are written exactly once, after the
// ephemeral work directory is removed.
func RunBuildArgs(
	ctx context.Context,
	cfg Config,
) error {
	const errCtx = "running build-arg pipeline"

	selection, err := loadSelection(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	rp := summary.New(runParams(cfg))

	for _, res := range buildArgResults(
		ctx, cfg, selection,
	) {
		rp.Add(res)
	}

	if err := rp.WriteSummary(
		cfg.SummaryPath,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.OutputPath != "" {
		if err := rp.WritePRCount(
			cfg.OutputPath,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if cfg.ResultsPath != "" {
		if err := rp.WriteJSON(
			cfg.ResultsPath,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}

// buildArgResults owns the per-run work directory: it is
// created here and removed before the results are
// returned.
func buildArgResults(
	ctx context.Context,
	cfg Config,
	selection map[string]string,
) []summary.Result {
	if len(selection) == 0 {
		slog.Info("no runtimes selected")

		return []summary.Result{{
			Kind: summary.NoChanges,
			Detail: "No VLLM runtime versions " +
				"found",
		}}
	}

	work, err := os.MkdirTemp(
		cfg.TmpDir, "vllm_repo_update_",
	)
	if err != nil {
		return []summary.Result{{
			Runtime: "all",
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to create work dir: %v", err,
			),
		}}
	}

	defer func() {
		if rmErr := os.RemoveAll(work); rmErr != nil {
			slog.Error(
				"failed to remove work dir",
				"dir", work,
				"error", rmErr,
			)
		}
	}()

	var results []summary.Result

	for _, runtime := range sortedRuntimes(selection) {
		slog.Info(
			"processing runtime",
			"runtime", runtime,
			"version", selection[runtime],
		)

		results = append(results, processRuntime(
			ctx, cfg,
			runtime,
			selection[runtime],
			filepath.Join(work, runtime),
		))
	}

	return results
}

// processRuntime clones one runtime's repository, patches
// its Dockerfiles, and publishes a pull request. Every
// failure is converted into the returned result.
func processRuntime(
	ctx context.Context,
	cfg Config,
	runtime string,
	version string,
	dir string,
) summary.Result {
	target, ok := cfg.Targets.Lookup(runtime)
	if !ok {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.NoMapping,
			Detail:  "No repository mapping found",
		}
	}

	repo, err := git.Clone(
		cfg.cloneURL(target), dir, cfg.TargetBranch,
	)
	if err != nil {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.CloneFailed,
			Detail: fmt.Sprintf(
				"Failed to clone %s: %v",
				target.FullName(), err,
			),
		}
	}

	defer func() {
		if cleanErr := repo.Clean(); cleanErr != nil {
			slog.Error(
				"failed to clean repo",
				"error", cleanErr,
			)
		}
	}()

	patcher := patch.BuildArg()

	changed := false

	for _, file := range target.Files {
		outcome, patchErr := patch.ApplyToFile(
			patcher,
			filepath.Join(repo.Dir, file),
			version,
			cfg.DryRun,
		)
		if patchErr != nil {
			return summary.Result{
				Runtime: runtime,
				Kind:    summary.Failed,
				Detail: fmt.Sprintf(
					"Failed to patch %s: %v",
					file, patchErr,
				),
			}
		}

		if outcome == patch.Updated ||
			outcome == patch.WouldUpdate {
			changed = true
		}
	}

	if !changed {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.NoChanges,
			Detail:  "No changes needed",
		}
	}

	if cfg.DryRun {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.WouldCreate,
			Detail:  "Would create PR (dry run)",
		}
	}

	clean, err := repo.IsClean()
	if err != nil {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to check status: %v", err,
			),
		}
	}

	if clean {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.NoChanges,
			Detail:  "No changes needed",
		}
	}

	changedFiles, err := repo.ChangedFiles()
	if err != nil {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to list changes: %v", err,
			),
		}
	}

	update := commitmsg.Update{
		Runtime: runtime,
		Version: version,
	}

	title, body := commitmsg.BuildArgPR(
		update, changedFiles, cfg.TargetBranch,
	)

	url, err := publish(ctx, cfg, repo, target,
		publication{
			branch: commitmsg.BuildArgBranch(
				version,
			),
			commitMsg: commitmsg.BuildArgCommit(
				update, changedFiles,
			),
			title: title,
			body:  body,
		},
	)
	if err != nil {
		return summary.Result{
			Runtime: runtime,
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to create PR: %v", err,
			),
		}
	}

	return summary.Result{
		Runtime: runtime,
		Kind:    summary.Created,
		PRURL:   url,
	}
}
