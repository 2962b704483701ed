package git

import "context"

// Pattern: Strategy -- swap git platform without
// changing PR creation logic.

// PRProvider creates pull requests on a git hosting
// platform and reports the created request's URL.
type PRProvider interface {
	CreatePR(
		ctx context.Context,
		head string,
		base string,
		title string,
		body string,
	) (string, error)
}

// ProviderFactory builds a PRProvider for one downstream
// repository. The build-argument pipeline targets many
// repositories, so providers are created per target.
type ProviderFactory func(
	owner string,
	repo string,
) (PRProvider, error)

// PRProviderFunc adapts a plain function to the
// PRProvider interface. When body is empty the title is
// used as body.
type PRProviderFunc func(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (string, error)

// CreatePR delegates to the wrapped function. If body is
// empty, title is substituted.
func (f PRProviderFunc) CreatePR(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (string, error) {
	if body == "" {
		body = title
	}

	return f(ctx, head, base, title, body)
}
