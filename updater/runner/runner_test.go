package runner_test

import (
	"context"
	"fmt"
	"os"
	oe "os/exec"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/runtime_updater/updater/git"
	"github.com/byte4ever/runtime_updater/updater/mapping"
	"github.com/byte4ever/runtime_updater/updater/runner"
	"github.com/byte4ever/runtime_updater/updater/summary"
)

// writeVersions writes a runtime versions document and
// returns its path.
func writeVersions(
	t *testing.T,
	content string,
) string {
	t.Helper()

	path := filepath.Join(
		t.TempDir(), "update-runtime-version.yaml",
	)

	require.NoError(t, os.WriteFile(
		path, []byte(content), 0o600,
	))

	return path
}

// initOrigin creates a git repository on branch main with
// the given files committed, usable as a clone and push
// remote. Git hooks are disabled to avoid interference
// from pre-commit hooks.
func initOrigin(
	tb testing.TB,
	dir string,
	files map[string]string,
) {
	tb.Helper()

	gitCmd(tb, dir, "init", "-b", "main")
	gitCmd(
		tb, dir,
		"config", "user.email", "test@test.com",
	)
	gitCmd(tb, dir, "config", "user.name", "Test")
	gitCmd(
		tb, dir,
		"config", "core.hooksPath", "/dev/null",
	)

	for name, content := range files {
		fp := filepath.Join(dir, name)

		require.NoError(tb, os.MkdirAll(
			filepath.Dir(fp), 0o750,
		))
		require.NoError(tb, os.WriteFile(
			fp, []byte(content), 0o600,
		))
	}

	gitCmd(tb, dir, "add", ".")
	gitCmd(tb, dir, "commit", "-m", "initial")
}

// gitCmd runs a git command in the given directory.
func gitCmd(
	tb testing.TB,
	dir string,
	args ...string,
) string {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(
		context.Background(), "git", args...,
	)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf(
			"git %v failed: %s: %v",
			args, string(out), err,
		)
	}

	return string(out)
}

// setGitIdentity provides a commit identity for clones
// created by the code under test.
func setGitIdentity(t *testing.T) {
	t.Helper()

	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@test.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@test.com")

	// Keep host-level git configuration (hooks, commit
	// signing) out of the clones under test.
	t.Setenv("GIT_CONFIG_GLOBAL", "/dev/null")
	t.Setenv("GIT_CONFIG_SYSTEM", "/dev/null")
}

// recordingFactory returns a provider factory capturing
// every CreatePR call.
type prCall struct {
	owner string
	repo  string
	head  string
	base  string
	title string
	body  string
}

func recordingFactory(
	calls *[]prCall,
) git.ProviderFactory {
	return func(
		owner string,
		repo string,
	) (git.PRProvider, error) {
		return git.PRProviderFunc(func(
			_ context.Context,
			head string,
			base string,
			title string,
			body string,
		) (string, error) {
			*calls = append(*calls, prCall{
				owner: owner,
				repo:  repo,
				head:  head,
				base:  base,
				title: title,
				body:  body,
			})

			return "https://example.com/" + repo +
				"/pull/1", nil
		}), nil
	}
}

func TestLoadSelection(t *testing.T) {
	t.Parallel()

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: vllm
    version: v0.6.3
  - runtime: vllm-rocm
    version: v0.6.2
  - runtime: ovms
    version: "2024.4"
  - runtime: unrelated
    version: "1.0.0"
`)

	selection, err := runner.LoadSelectionForTest(
		runner.Config{
			VersionsPath:  path,
			RuntimeFilter: "all",
			Targets:       mapping.BuildArgTargets(),
		},
	)

	require.NoError(t, err)

	// ovms and unrelated have no build-arg repository.
	assert.Equal(t, map[string]string{
		"vllm":      "v0.6.3",
		"vllm-rocm": "v0.6.2",
	}, selection)
}

func TestLoadSelection_single_filter(t *testing.T) {
	t.Parallel()

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: vllm
    version: v0.6.3
  - runtime: vllm-rocm
    version: v0.6.2
`)

	selection, err := runner.LoadSelectionForTest(
		runner.Config{
			VersionsPath:  path,
			RuntimeFilter: "vllm-rocm",
			Targets:       mapping.BuildArgTargets(),
		},
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"vllm-rocm": "v0.6.2",
	}, selection)
}

func TestLoadSelection_unknown_filter(t *testing.T) {
	t.Parallel()

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: vllm
    version: v0.6.3
`)

	_, err := runner.LoadSelectionForTest(
		runner.Config{
			VersionsPath:  path,
			RuntimeFilter: "ghost",
			Targets:       mapping.BuildArgTargets(),
		},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadSelection_missing_document(t *testing.T) {
	t.Parallel()

	_, err := runner.LoadSelectionForTest(
		runner.Config{
			VersionsPath: filepath.Join(
				t.TempDir(), "absent.yaml",
			),
			RuntimeFilter: "all",
			Targets:       mapping.BuildArgTargets(),
		},
	)

	require.Error(t, err)
}

func TestSortedRuntimes(t *testing.T) {
	t.Parallel()

	got := runner.SortedRuntimesForTest(
		map[string]string{
			"vllm-rocm": "b",
			"vllm":      "a",
			"ovms":      "c",
		},
	)

	assert.Equal(
		t,
		[]string{"ovms", "vllm", "vllm-rocm"},
		got,
	)
}

func TestRunBuildArgs_mixed_outcomes(t *testing.T) {
	setGitIdentity(t)

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: vllm
    version: v0.6.3
  - runtime: vllm-cpu
    version: v1.0.0
  - runtime: vllm-rocm
    version: v0.6.2
`)

	// vllm's Dockerfile needs an update, vllm-cpu's
	// already carries the version, and vllm-rocm's
	// origin does not exist so its clone fails.
	originVllm := t.TempDir()
	initOrigin(t, originVllm, map[string]string{
		"Dockerfile.ubi": "ARG VLLM_VERSION=\"v0.6.2\"\n",
	})

	originCPU := t.TempDir()
	initOrigin(t, originCPU, map[string]string{
		"Dockerfile.ubi": "ARG VLLM_VERSION=\"v1.0.0\"\n",
	})

	origins := map[string]string{
		"vllm":      originVllm,
		"vllm-cpu":  originCPU,
		"vllm-rocm": filepath.Join(t.TempDir(), "gone"),
	}

	remoteFor := func(
		target mapping.Target,
	) string {
		return origins[target.Repo]
	}

	var calls []prCall

	outDir := t.TempDir()
	summaryPath := filepath.Join(
		outDir, "vllm_update_summary.md",
	)
	countPath := filepath.Join(outDir, "pr_count.txt")
	resultsPath := filepath.Join(
		outDir, "update_results.json",
	)

	err := runner.RunBuildArgs(
		context.Background(),
		runner.Config{
			VersionsPath:  path,
			TargetBranch:  "main",
			RuntimeFilter: "all",
			TmpDir:        t.TempDir(),
			SummaryPath:   summaryPath,
			OutputPath:    countPath,
			ResultsPath:   resultsPath,
			Targets: mapping.NewTable(
				map[string]mapping.Target{
					"vllm": {
						Owner: "org",
						Repo:  "vllm",
						Files: []string{
							"Dockerfile.ubi",
						},
					},
					"vllm-cpu": {
						Owner: "org",
						Repo:  "vllm-cpu",
						Files: []string{
							"Dockerfile.ubi",
						},
					},
					"vllm-rocm": {
						Owner: "org",
						Repo:  "vllm-rocm",
						Files: []string{
							"Dockerfile.ubi",
						},
					},
				},
			),
			Providers: recordingFactory(&calls),
			CloneURL:  remoteFor,
			PushURL:   remoteFor,
		},
	)
	require.NoError(t, err)

	// The rocm clone failure did not abort the run:
	// every runtime has an outcome line.
	md, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(
		t, string(md),
		"✅ vllm: [PR created]"+
			"(https://example.com/vllm/pull/1)",
	)
	assert.Contains(
		t, string(md), "⚠️ vllm-cpu: No changes needed",
	)
	assert.Contains(
		t, string(md), "❌ vllm-rocm: Failed to clone",
	)

	// Exactly one PR, for the one changed repository.
	require.Len(t, calls, 1)
	assert.Equal(t, "vllm", calls[0].repo)
	assert.Equal(
		t, "update-vllm-version-v0-6-3", calls[0].head,
	)
	assert.Equal(t, "main", calls[0].base)

	count, err := os.ReadFile(countPath)
	require.NoError(t, err)
	assert.Equal(t, "1", string(count))

	// The pushed branch landed in the origin with the
	// patched Dockerfile.
	got := gitCmd(
		t, originVllm,
		"show",
		"update-vllm-version-v0-6-3:Dockerfile.ubi",
	)
	assert.Equal(
		t, "ARG VLLM_VERSION=\"v0.6.3\"\n", got,
	)

	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)

	var doc struct {
		PRCount int `json:"prCount"`
		Results []struct {
			Runtime string `json:"runtime"`
			Status  string `json:"status"`
		} `json:"results"`
	}

	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.PRCount)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "created", doc.Results[0].Status)
	assert.Equal(t, "no-changes", doc.Results[1].Status)
	assert.Equal(
		t, "clone-failed", doc.Results[2].Status,
	)
}

func TestRunAnnotations_publishes_combined_pr(
	t *testing.T,
) {
	setGitIdentity(t)

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: vllm
    version: v0.6.3
  - runtime: ovms
    version: "2025.1"
`)

	template := `kind: Template
metadata:
  name: %s
objects:
  - kind: ServingRuntime
    metadata:
      annotations:
        opendatahub.io/runtime-version: "%s"
`

	origin := t.TempDir()
	initOrigin(t, origin, map[string]string{
		"config/runtimes/vllm-template.yaml": fmt.Sprintf(
			template, "vllm", "v0.6.2",
		),
		"config/runtimes/ovms-template.yaml": fmt.Sprintf(
			template, "ovms", "2024.4",
		),
	})

	remoteFor := func(mapping.Target) string {
		return origin
	}

	var calls []prCall

	outDir := t.TempDir()
	summaryPath := filepath.Join(
		outDir, "odh_update_summary.md",
	)
	urlPath := filepath.Join(outDir, "pr_url.txt")

	err := runner.RunAnnotations(
		context.Background(),
		runner.Config{
			VersionsPath:  path,
			TargetBranch:  "main",
			RuntimeFilter: "all",
			TmpDir:        t.TempDir(),
			SummaryPath:   summaryPath,
			OutputPath:    urlPath,
			Targets: mapping.NewTable(
				map[string]mapping.Target{
					"vllm": {
						Owner: "org",
						Repo:  "odh-model-controller",
						Files: []string{
							"config/runtimes/vllm-template.yaml",
						},
					},
					"ovms": {
						Owner: "org",
						Repo:  "odh-model-controller",
						Files: []string{
							"config/runtimes/ovms-template.yaml",
						},
					},
				},
			),
			Providers: recordingFactory(&calls),
			CloneURL:  remoteFor,
			PushURL:   remoteFor,
		},
	)
	require.NoError(t, err)

	// One combined PR covering both runtimes.
	require.Len(t, calls, 1)
	assert.Equal(
		t, "odh-model-controller", calls[0].repo,
	)
	assert.Equal(
		t,
		"update-runtime-versions-2025-1",
		calls[0].head,
	)
	assert.Contains(t, calls[0].body, "**vllm**")
	assert.Contains(t, calls[0].body, "**ovms**")

	md, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(
		t, string(md),
		"✅ odh-model-controller: [PR created]",
	)

	url, err := os.ReadFile(urlPath)
	require.NoError(t, err)
	assert.Equal(
		t,
		"https://example.com/odh-model-controller/pull/1",
		string(url),
	)

	// Both patched (and verified) manifests landed on
	// the pushed branch.
	got := gitCmd(
		t, origin,
		"show",
		"update-runtime-versions-2025-1:"+
			"config/runtimes/vllm-template.yaml",
	)
	assert.Contains(t, got, "\"v0.6.3\"")
}

func TestRunBuildArgs_empty_selection(t *testing.T) {
	t.Parallel()

	// ovms has no build-arg repository, so the run
	// selects nothing and touches no network.
	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: ovms
    version: "2024.4"
`)

	outDir := t.TempDir()
	summaryPath := filepath.Join(
		outDir, "vllm_update_summary.md",
	)
	countPath := filepath.Join(outDir, "pr_count.txt")
	resultsPath := filepath.Join(
		outDir, "update_results.json",
	)

	err := runner.RunBuildArgs(
		context.Background(),
		runner.Config{
			VersionsPath:  path,
			GitHost:       "github.com",
			TargetBranch:  "main",
			RuntimeFilter: "all",
			TmpDir:        t.TempDir(),
			SummaryPath:   summaryPath,
			OutputPath:    countPath,
			ResultsPath:   resultsPath,
			Targets:       mapping.BuildArgTargets(),
		},
	)
	require.NoError(t, err)

	md, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(
		t, string(md), "**Target Branch:** main",
	)
	assert.Contains(
		t, string(md),
		"⚠️ No VLLM runtime versions found",
	)

	count, err := os.ReadFile(countPath)
	require.NoError(t, err)
	assert.Equal(t, "0", string(count))

	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)

	var doc struct {
		PRCount int `json:"prCount"`
		Results []struct {
			Status string `json:"status"`
		} `json:"results"`
	}

	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Zero(t, doc.PRCount)
	require.Len(t, doc.Results, 1)
	assert.Equal(
		t, "no-changes", doc.Results[0].Status,
	)
}

func TestRunBuildArgs_unknown_filter(t *testing.T) {
	t.Parallel()

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: vllm
    version: v0.6.3
`)

	summaryPath := filepath.Join(
		t.TempDir(), "vllm_update_summary.md",
	)

	err := runner.RunBuildArgs(
		context.Background(),
		runner.Config{
			VersionsPath:  path,
			RuntimeFilter: "ghost",
			TmpDir:        t.TempDir(),
			SummaryPath:   summaryPath,
			Targets:       mapping.BuildArgTargets(),
		},
	)
	require.Error(t, err)

	// A fatal filter error happens before any output.
	_, statErr := os.Stat(summaryPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunAnnotations_empty_selection(t *testing.T) {
	t.Parallel()

	path := writeVersions(t, `
rhoai-runtime-versions:
  - runtime: unrelated
    version: "1.0.0"
`)

	outDir := t.TempDir()
	summaryPath := filepath.Join(
		outDir, "odh_update_summary.md",
	)
	urlPath := filepath.Join(outDir, "pr_url.txt")

	err := runner.RunAnnotations(
		context.Background(),
		runner.Config{
			VersionsPath:  path,
			GitHost:       "github.com",
			TargetBranch:  "main",
			RuntimeFilter: "all",
			TmpDir:        t.TempDir(),
			SummaryPath:   summaryPath,
			OutputPath:    urlPath,
			Targets:       mapping.AnnotationTargets(),
		},
	)
	require.NoError(t, err)

	md, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(
		t, string(md), "**Target Branch:** main",
	)
	assert.Contains(
		t, string(md),
		"⚠️ No ODH Model Controller updates needed",
	)

	// No PR was created, so no URL output exists.
	_, statErr := os.Stat(urlPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessRuntime_no_mapping(t *testing.T) {
	t.Parallel()

	res := runner.ProcessRuntimeForTest(
		context.Background(),
		runner.Config{
			Targets: mapping.NewTable(nil),
		},
		"ghost",
		"1.0.0",
		filepath.Join(t.TempDir(), "ghost"),
	)

	assert.Equal(t, summary.NoMapping, res.Kind)
	assert.Equal(t, "ghost", res.Runtime)
	assert.Equal(
		t,
		"❌ ghost: No repository mapping found",
		res.Line(),
	)
}
