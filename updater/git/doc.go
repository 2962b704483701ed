// Package git provides git working-copy operations and a
// strategy interface for creating pull requests across
// different git hosting platforms.
//
// The PRProvider interface abstracts PR creation.
// Implementations exist for GitHub and GitLab in
// sub-packages; ProviderFactory builds one per downstream
// repository since the build-argument pipeline targets
// many of them. PRProviderFunc is a convenience adapter
// that lets plain functions satisfy the interface.
//
// Repo wraps a local git clone with methods for
// branching, committing, and pushing. Clone creates a
// fresh Repo from a remote URL at a given branch.
package git
