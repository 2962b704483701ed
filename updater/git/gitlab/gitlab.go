// Package gitlab implements merge request creation on
// GitLab, for downstream mirrors hosted there.
package gitlab

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/runtime_updater/updater/git"
)

// Config holds the settings needed to create a GitLab
// merge request provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Repo is the full project path
	// (e.g. "org/project").
	Repo string
	// AccessToken is a personal or project access token
	// used for authentication.
	AccessToken string
}

// Provider creates merge requests on GitLab.
//
// Pattern: Strategy -- implements git.PRProvider.
type Provider struct {
	client *gl.Client
	repo   string
}

// NewProvider validates cfg and returns a Provider ready
// to create merge requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{
		client: client,
		repo:   cfg.Repo,
	}, nil
}

// Factory returns a git.ProviderFactory that creates
// providers for projects on one GitLab instance.
func Factory(
	host string,
	token string,
) git.ProviderFactory {
	return func(
		owner string,
		repo string,
	) (git.PRProvider, error) {
		return NewProvider(Config{
			Host:        host,
			Repo:        owner + "/" + repo,
			AccessToken: token,
		})
	}
}

// CreatePR creates a merge request from branch head into
// branch base and returns its web URL. A non-created
// response is a failure, with the response body surfaced
// in the log.
func (p *Provider) CreatePR(
	_ context.Context,
	head string,
	base string,
	title string,
	body string,
) (string, error) {
	const errCtx = "creating gitlab merge request"

	opts := gl.CreateMergeRequestOptions{
		Title:        &title,
		Description:  &body,
		SourceBranch: &head,
		TargetBranch: &base,
	}

	created, resp, err := p.client.MergeRequests.CreateMergeRequest(
		p.repo, &opts,
	)
	if err == nil {
		slog.Info(
			"created merge request",
			"url", created.WebURL,
		)

		return created.WebURL, nil
	}

	// Log the response body for debugging.
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close() //nolint:errcheck

		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Warn(
				"cannot read response body",
				"error", readErr,
			)
		} else {
			slog.Warn(
				"gitlab response",
				"body", string(rb),
			)
		}
	}

	return "", fmt.Errorf("%s: %w", errCtx, err)
}
