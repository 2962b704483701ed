// Package config loads run options from the environment
// and runtime versions from the canonical document.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultVersionsPath is the canonical location of the
// runtime versions document within the automation
// repository.
const DefaultVersionsPath = "src/config/update-runtime-version.yaml"

// FilterAll is the runtime filter value that selects
// every eligible runtime.
const FilterAll = "all"

// Options holds the run parameters sourced from the
// process environment.
type Options struct {
	// GitHubToken authenticates git pushes and hosting
	// API calls.
	GitHubToken string

	// TargetBranch is the branch cloned from and
	// targeted by created pull requests.
	TargetBranch string

	// RuntimeFilter restricts the run to one runtime
	// name, or FilterAll for no restriction.
	RuntimeFilter string

	// DryRun suppresses all mutating side effects.
	DryRun bool
}

// FromEnv reads Options from the environment.
// GITHUB_TOKEN is required; the remaining variables fall
// back to their defaults.
func FromEnv() (Options, error) {
	const errCtx = "reading options from environment"

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return Options{}, fmt.Errorf(
			"%s: GITHUB_TOKEN environment variable "+
				"is required",
			errCtx,
		)
	}

	return Options{
		GitHubToken: token,
		TargetBranch: envOrDefault(
			"TARGET_BRANCH", "main",
		),
		RuntimeFilter: envOrDefault(
			"RUNTIME_FILTER", FilterAll,
		),
		DryRun: strings.EqualFold(
			os.Getenv("DRY_RUN"), "true",
		),
	}, nil
}

// envOrDefault returns the value of key, or def when the
// variable is unset or empty.
func envOrDefault(key string, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return def
}

// versionsDoc mirrors the runtime versions document
// structure.
type versionsDoc struct {
	Versions []versionEntry `yaml:"rhoai-runtime-versions"`
}

// versionEntry is one runtime/version record.
type versionEntry struct {
	Runtime string `yaml:"runtime"`
	Version string `yaml:"version"`
}

// LoadVersions reads the runtime versions document at
// path and returns a runtime name to version mapping. A
// missing file or a document without the expected
// top-level key is an error. When a runtime is listed
// more than once, the last entry wins.
func LoadVersions(
	path string,
) (map[string]string, error) {
	const errCtx = "loading runtime versions"

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var doc versionsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf(
			"%s: parse yaml: %w", errCtx, err,
		)
	}

	if doc.Versions == nil {
		return nil, fmt.Errorf(
			"%s: missing rhoai-runtime-versions "+
				"key in %s",
			errCtx, path,
		)
	}

	versions := make(
		map[string]string, len(doc.Versions),
	)

	for _, entry := range doc.Versions {
		versions[entry.Runtime] = entry.Version
	}

	return versions, nil
}

// Eligible returns the entries of versions whose runtime
// names appear in names, preserving the loaded values.
func Eligible(
	versions map[string]string,
	names []string,
) map[string]string {
	out := make(map[string]string, len(names))

	for _, name := range names {
		if version, ok := versions[name]; ok {
			out[name] = version
		}
	}

	return out
}

// ApplyFilter narrows versions to the single requested
// runtime. FilterAll (or empty) returns versions
// unchanged. A filter naming a runtime absent from
// versions is an error, so an unknown filter fails the
// run before any network activity.
func ApplyFilter(
	versions map[string]string,
	filter string,
) (map[string]string, error) {
	const errCtx = "applying runtime filter"

	if filter == "" || filter == FilterAll {
		return versions, nil
	}

	version, ok := versions[filter]
	if !ok {
		return nil, fmt.Errorf(
			"%s: runtime %q not found",
			errCtx, filter,
		)
	}

	return map[string]string{filter: version}, nil
}
