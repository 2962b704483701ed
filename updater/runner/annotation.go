package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/byte4ever/runtime_updater/updater/commitmsg"
	"github.com/byte4ever/runtime_updater/updater/git"
	"github.com/byte4ever/runtime_updater/updater/manifest"
	"github.com/byte4ever/runtime_updater/updater/patch"
	"github.com/byte4ever/runtime_updater/updater/summary"
)

// RunAnnotations executes the manifest annotation
// pipeline: every selected runtime's template files live
// in one shared repository, so all updates are combined
// into a single commit and pull request. The summary and
// machine outputs are written exactly once, after the
// ephemeral work directory is removed.
func RunAnnotations(
	ctx context.Context,
	cfg Config,
) error {
	const errCtx = "running annotation pipeline"

	selection, err := loadSelection(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	rp := summary.New(runParams(cfg))

	for _, res := range annotationResults(
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
		if err := rp.WritePRURL(
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

// annotationResults owns the per-run work directory: it
// is created here and removed before the results are
// returned, so reports are never written with stale
// clones still on disk.
func annotationResults(
	ctx context.Context,
	cfg Config,
	selection map[string]string,
) []summary.Result {
	if len(selection) == 0 {
		slog.Info("no runtimes selected")

		return []summary.Result{{
			Kind: summary.NoChanges,
			Detail: "No ODH Model Controller " +
				"updates needed",
		}}
	}

	runtimes := sortedRuntimes(selection)

	// All annotation targets share one repository.
	target, _ := cfg.Targets.Lookup(runtimes[0])

	work, err := os.MkdirTemp(
		cfg.TmpDir, "odh_update_",
	)
	if err != nil {
		return []summary.Result{{
			Runtime: target.Repo,
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

	res := processAnnotations(
		ctx, cfg, selection,
		filepath.Join(work, target.Repo),
	)

	return []summary.Result{res}
}

// patchedFile records one rewritten manifest pending
// verification.
type patchedFile struct {
	path    string
	version string
}

// processAnnotations clones the shared repository,
// patches every selected runtime's template files,
// verifies the rewritten manifests, and publishes one
// combined pull request. Every failure is converted into
// the returned result; nothing here aborts the run.
func processAnnotations(
	ctx context.Context,
	cfg Config,
	selection map[string]string,
	dir string,
) summary.Result {
	runtimes := sortedRuntimes(selection)

	target, _ := cfg.Targets.Lookup(runtimes[0])

	repo, err := git.Clone(
		cfg.cloneURL(target), dir, cfg.TargetBranch,
	)
	if err != nil {
		return summary.Result{
			Runtime: target.Repo,
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

	var (
		updates  []commitmsg.Update
		toVerify []patchedFile
		anyDry   bool
	)

	patcher := patch.Annotation()

	for _, runtime := range runtimes {
		rtTarget, _ := cfg.Targets.Lookup(runtime)
		version := selection[runtime]

		changed := false

		for _, file := range rtTarget.Files {
			path := filepath.Join(repo.Dir, file)

			outcome, patchErr := patch.ApplyToFile(
				patcher, path, version, cfg.DryRun,
			)
			if patchErr != nil {
				return summary.Result{
					Runtime: target.Repo,
					Kind:    summary.Failed,
					Detail: fmt.Sprintf(
						"Failed to patch %s: %v",
						file, patchErr,
					),
				}
			}

			switch outcome {
			case patch.Updated:
				changed = true

				toVerify = append(
					toVerify, patchedFile{
						path:    path,
						version: version,
					},
				)
			case patch.WouldUpdate:
				changed = true
				anyDry = true
			case patch.Unchanged, patch.Missing:
			}
		}

		if changed {
			updates = append(
				updates, commitmsg.Update{
					Runtime: runtime,
					Version: version,
				},
			)
		}
	}

	if len(updates) == 0 {
		return summary.Result{
			Runtime: target.Repo,
			Kind:    summary.NoChanges,
			Detail:  "No changes needed",
		}
	}

	if cfg.DryRun && anyDry {
		return summary.Result{
			Runtime: target.Repo,
			Kind:    summary.WouldCreate,
			Detail:  "Would create PR (dry run)",
		}
	}

	for _, pf := range toVerify {
		if verifyErr := manifest.VerifyAnnotation(
			pf.path, patch.AnnotationKey, pf.version,
		); verifyErr != nil {
			return summary.Result{
				Runtime: target.Repo,
				Kind:    summary.Failed,
				Detail: fmt.Sprintf(
					"Verification failed: %v",
					verifyErr,
				),
			}
		}
	}

	clean, err := repo.IsClean()
	if err != nil {
		return summary.Result{
			Runtime: target.Repo,
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to check status: %v", err,
			),
		}
	}

	if clean {
		return summary.Result{
			Runtime: target.Repo,
			Kind:    summary.NoChanges,
			Detail:  "No changes needed",
		}
	}

	changedFiles, err := repo.ChangedFiles()
	if err != nil {
		return summary.Result{
			Runtime: target.Repo,
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to list changes: %v", err,
			),
		}
	}

	title, body := commitmsg.AnnotationPR(
		updates, changedFiles, cfg.TargetBranch,
	)

	url, err := publish(ctx, cfg, repo, target,
		publication{
			branch: commitmsg.AnnotationBranch(
				updates,
			),
			commitMsg: commitmsg.AnnotationCommit(
				updates, changedFiles,
			),
			title: title,
			body:  body,
		},
	)
	if err != nil {
		return summary.Result{
			Runtime: target.Repo,
			Kind:    summary.Failed,
			Detail: fmt.Sprintf(
				"Failed to create PR: %v", err,
			),
		}
	}

	return summary.Result{
		Runtime: target.Repo,
		Kind:    summary.Created,
		PRURL:   url,
	}
}
