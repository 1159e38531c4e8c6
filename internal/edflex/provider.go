package edflex

import "context"

// Provider builds a client from the current connector settings. Clients are
// cheap request-scoped values; constructing one per use means credential
// changes take effect without a restart, while the shared token cache keeps
// authentication amortized across instances.
type Provider func(ctx context.Context) (*Client, error)

// GetScorm implements the engine's package-download dependency by resolving
// a client and delegating.
func (p Provider) GetScorm(ctx context.Context, url string) ([]byte, error) {
	c, err := p(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetScorm(ctx, url)
}
