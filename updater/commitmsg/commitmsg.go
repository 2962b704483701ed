package commitmsg

import (
	"strings"

	"github.com/valyala/fasttemplate"
)

// Update describes one runtime version change.
type Update struct {
	// Runtime is the runtime name from the versions
	// document.
	Runtime string
	// Version is the new version token.
	Version string
}

// String formats the update as "runtime -> version".
func (u Update) String() string {
	return u.Runtime + " -> " + u.Version
}

// BranchSlug converts a version string into a branch
// name fragment: every character outside [a-zA-Z0-9] is
// replaced by a dash and runs of dashes are collapsed.
func BranchSlug(version string) string {
	var sb strings.Builder

	lastDash := true

	for _, r := range version {
		isWord := (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')

		if isWord {
			sb.WriteRune(r)

			lastDash = false

			continue
		}

		if !lastDash {
			sb.WriteByte('-')

			lastDash = true
		}
	}

	return strings.TrimSuffix(sb.String(), "-")
}

// AnnotationBranch returns the branch name for the
// combined annotation update. The slug is derived from
// the first update's version.
func AnnotationBranch(updates []Update) string {
	const prefix = "update-runtime-versions"

	if len(updates) == 0 {
		return prefix
	}

	return prefix + "-" + BranchSlug(updates[0].Version)
}

// BuildArgBranch returns the branch name for one
// runtime's Dockerfile update.
func BuildArgBranch(version string) string {
	return "update-vllm-version-" +
		strings.ReplaceAll(version, ".", "-")
}

// AnnotationCommit builds the commit message for the
// shared-repository annotation update, enumerating the
// updated runtimes and files.
func AnnotationCommit(
	updates []Update,
	files []string,
) string {
	var sb strings.Builder

	sb.WriteString(
		"Update runtime versions in ODH Model " +
			"Controller\n\nRuntime updates:\n",
	)

	for _, u := range updates {
		sb.WriteString("- " + u.String() + "\n")
	}

	sb.WriteString("\nFiles updated:\n")

	for _, f := range files {
		sb.WriteString("- " + f + "\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// BuildArgCommit builds the commit message for one
// runtime's Dockerfile update.
func BuildArgCommit(
	update Update,
	files []string,
) string {
	var sb strings.Builder

	sb.WriteString(
		"Update VLLM_VERSION to " + update.Version +
			" for " + update.Runtime +
			"\n\nFiles updated:\n",
	)

	for _, f := range files {
		sb.WriteString("- " + f + "\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// annotationBodyTemplate is the PR body for the combined
// annotation update.
const annotationBodyTemplate = `This PR updates runtime versions in the ODH Model Controller.

**Runtime Updates:**
{{updates}}

**Files Updated:**
{{files}}

**Target Branch:** {{target_branch}}

This PR was automatically generated by the update-odh-runtime-versions GitHub Action.`

// buildArgBodyTemplate is the PR body for one runtime's
// Dockerfile update.
const buildArgBodyTemplate = `This PR updates the VLLM_VERSION to ` + "`{{version}}`" + ` for the ` + "`{{runtime}}`" + ` runtime.

**Files updated:**
{{files}}

**Runtime:** {{runtime}}
**Version:** {{version}}
**Target Branch:** {{target_branch}}

This PR was automatically generated by the update-vllm-repositories GitHub Action.`

// AnnotationPR returns the pull request title and body
// for the combined annotation update.
func AnnotationPR(
	updates []Update,
	files []string,
	targetBranch string,
) (string, string) {
	title := "Update runtime versions in ODH Model " +
		"Controller"

	var upd strings.Builder

	for i, u := range updates {
		if i > 0 {
			upd.WriteByte('\n')
		}

		upd.WriteString(
			"- **" + u.Runtime + "**: `" +
				u.Version + "`",
		)
	}

	body := fasttemplate.ExecuteString(
		annotationBodyTemplate, "{{", "}}",
		map[string]interface{}{
			"updates":       upd.String(),
			"files":         bulletList(files),
			"target_branch": targetBranch,
		},
	)

	return title, body
}

// BuildArgPR returns the pull request title and body for
// one runtime's Dockerfile update.
func BuildArgPR(
	update Update,
	files []string,
	targetBranch string,
) (string, string) {
	title := "Update VLLM_VERSION to " +
		update.Version + " for " + update.Runtime

	body := fasttemplate.ExecuteString(
		buildArgBodyTemplate, "{{", "}}",
		map[string]interface{}{
			"runtime":       update.Runtime,
			"version":       update.Version,
			"files":         bulletList(files),
			"target_branch": targetBranch,
		},
	)

	return title, body
}

// bulletList renders paths as markdown bullet lines with
// code spans.
func bulletList(items []string) string {
	var sb strings.Builder

	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString("- `" + item + "`")
	}

	return sb.String()
}
